package database

// Flight is one row of the flights table. Everything except the booked
// count is immutable once loaded.
type Flight struct {
	FID        int64  `json:"fid"`
	Year       int    `json:"year"`
	Month      int    `json:"month"`
	DayOfMonth int    `json:"dayOfMonth"`
	CarrierID  string `json:"carrierId"`
	FlightNum  string `json:"flightNum"`
	OriginCity string `json:"originCity"`
	DestCity   string `json:"destCity"`
	ActualTime int    `json:"actualTime"`
	Capacity   int    `json:"capacity"`
	Booked     int    `json:"booked"`
}

// Reservation is one row of the reservations table. The rid is assigned
// by the store at insert time.
type Reservation struct {
	RID        int64  `json:"rid"`
	Username   string `json:"username"`
	FID        int64  `json:"fid"`
	DayOfMonth int    `json:"dayOfMonth"`
}

// Customer is one row of the customers table.
type Customer struct {
	Username     string
	PasswordHash string
}
