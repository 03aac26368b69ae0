package search

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cx-tal-miterani/flight-reservation-service/internal/database"
	"github.com/cx-tal-miterani/flight-reservation-service/internal/session"
)

// Service runs flight searches and assembles the itinerary list the
// booking engine consumes by index.
type Service struct {
	pool *pgxpool.Pool
	sb   sq.StatementBuilderType
}

// NewService creates a search Service over the given pool.
func NewService(pool *pgxpool.Pool) *Service {
	return &Service{
		pool: pool,
		sb:   sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

// Params describes one search request.
type Params struct {
	Origin      string `json:"origin"`
	Destination string `json:"destination"`
	DayOfMonth  int    `json:"dayOfMonth"`
	DirectOnly  bool   `json:"directOnly"`
	Limit       int    `json:"limit"`
}

// Option is one bookable itinerary in a search result: one leg for a
// direct flight, two for a connection.
type Option struct {
	Legs      []database.Flight `json:"legs"`
	TotalTime int               `json:"totalTime"`
}

// Result is an ordered search result. Options before DirectDivider are
// direct flights; the rest are two-hop connections.
type Result struct {
	Options       []Option `json:"options"`
	DirectDivider int      `json:"directDivider"`
}

// Itineraries converts the result into the session cache representation.
func (r *Result) Itineraries() []session.Itinerary {
	out := make([]session.Itinerary, 0, len(r.Options))
	for _, opt := range r.Options {
		legs := make([]int64, 0, len(opt.Legs))
		for _, f := range opt.Legs {
			legs = append(legs, f.FID)
		}
		out = append(out, session.Itinerary{Legs: legs})
	}
	return out
}

// Search finds direct flights first, ordered by flying time, then fills
// the remaining slots with two-hop connections ordered by total time.
func (s *Service) Search(ctx context.Context, p Params) (*Result, error) {
	if p.Limit <= 0 {
		p.Limit = 10
	}

	direct, err := s.searchDirect(ctx, p)
	if err != nil {
		return nil, err
	}

	res := &Result{Options: direct, DirectDivider: len(direct)}

	remaining := p.Limit - len(direct)
	if p.DirectOnly || remaining <= 0 {
		return res, nil
	}

	twoHop, err := s.searchTwoHop(ctx, p, remaining)
	if err != nil {
		return nil, err
	}
	res.Options = append(res.Options, twoHop...)

	return res, nil
}

func (s *Service) searchDirect(ctx context.Context, p Params) ([]Option, error) {
	sqlStr, args, err := s.sb.
		Select(
			"fid", "year", "month", "day_of_month", "carrier_id", "flight_num",
			"origin_city", "dest_city", "actual_time", "capacity", "booked",
		).
		From("flights").
		Where(sq.Eq{
			"origin_city":  p.Origin,
			"dest_city":    p.Destination,
			"day_of_month": p.DayOfMonth,
		}).
		Where("actual_time IS NOT NULL").
		OrderBy("actual_time ASC").
		Limit(uint64(p.Limit)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build direct search: %w", err)
	}

	rows, err := s.pool.Query(ctx, sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to search direct flights: %w", err)
	}
	defer rows.Close()

	var out []Option
	for rows.Next() {
		f, err := scanFlight(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan flight: %w", err)
		}
		out = append(out, Option{Legs: []database.Flight{f}, TotalTime: f.ActualTime})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read direct flights: %w", err)
	}
	return out, nil
}

func (s *Service) searchTwoHop(ctx context.Context, p Params, limit int) ([]Option, error) {
	cols := make([]string, 0, 23)
	for _, alias := range []string{"f1", "f2"} {
		for _, c := range []string{
			"fid", "year", "month", "day_of_month", "carrier_id", "flight_num",
			"origin_city", "dest_city", "actual_time", "capacity", "booked",
		} {
			cols = append(cols, alias+"."+c)
		}
	}
	cols = append(cols, "f1.actual_time + f2.actual_time AS total_time")

	sqlStr, args, err := s.sb.
		Select(cols...).
		From("flights f1").
		Join("flights f2 ON f1.dest_city = f2.origin_city" +
			" AND f1.day_of_month = f2.day_of_month" +
			" AND f1.month = f2.month AND f1.year = f2.year").
		Where(sq.Eq{
			"f1.origin_city":  p.Origin,
			"f2.dest_city":    p.Destination,
			"f1.day_of_month": p.DayOfMonth,
		}).
		Where("f1.actual_time IS NOT NULL AND f2.actual_time IS NOT NULL").
		OrderBy("total_time ASC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build two-hop search: %w", err)
	}

	rows, err := s.pool.Query(ctx, sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to search two-hop flights: %w", err)
	}
	defer rows.Close()

	var out []Option
	for rows.Next() {
		var f1, f2 database.Flight
		var total int
		err := rows.Scan(
			&f1.FID, &f1.Year, &f1.Month, &f1.DayOfMonth, &f1.CarrierID, &f1.FlightNum,
			&f1.OriginCity, &f1.DestCity, &f1.ActualTime, &f1.Capacity, &f1.Booked,
			&f2.FID, &f2.Year, &f2.Month, &f2.DayOfMonth, &f2.CarrierID, &f2.FlightNum,
			&f2.OriginCity, &f2.DestCity, &f2.ActualTime, &f2.Capacity, &f2.Booked,
			&total,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan two-hop flights: %w", err)
		}
		out = append(out, Option{Legs: []database.Flight{f1, f2}, TotalTime: total})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read two-hop flights: %w", err)
	}
	return out, nil
}

func scanFlight(rows pgx.Rows) (database.Flight, error) {
	var f database.Flight
	err := rows.Scan(
		&f.FID, &f.Year, &f.Month, &f.DayOfMonth, &f.CarrierID, &f.FlightNum,
		&f.OriginCity, &f.DestCity, &f.ActualTime, &f.Capacity, &f.Booked,
	)
	return f, err
}
