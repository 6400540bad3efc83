package server

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/ArionMiles/budgify/internal/pipeline"
	"github.com/ArionMiles/budgify/pkg/aggregate"
	"github.com/ArionMiles/budgify/pkg/api"
)

// selected returns the snapshot filtered by the request's filter params.
func (s *Server) selected(c echo.Context) ([]api.Transaction, error) {
	var p aggregate.Params
	if err := (&echo.DefaultBinder{}).BindQueryParams(c, &p); err != nil {
		return nil, fmt.Errorf("%w: %v", aggregate.ErrInvalidQuery, err)
	}
	if len(p.ExcludeCategories) == 0 {
		p.ExcludeCategories = s.config.ExcludeCategories
	}
	f, err := p.Filter()
	if err != nil {
		return nil, err
	}
	return aggregate.Select(s.store.Snapshot().Transactions(), f)
}

func (s *Server) healthz(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"status":       "ok",
		"transactions": s.store.Snapshot().Len(),
	})
}

func (s *Server) metadata(c echo.Context) error {
	l := s.store.Snapshot()
	md := aggregate.ComputeMetadata(l.Transactions())
	years := l.Years()
	if years == nil {
		years = []int{}
	}
	return c.JSON(http.StatusOK, metadataResponse{
		Categories: md.Categories,
		Merchants:  md.Merchants,
		Providers:  md.Providers,
		Years:      years,
	})
}

func (s *Server) overview(c echo.Context) error {
	txns, err := s.selected(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, newOverview(aggregate.ComputeOverview(txns)))
}

func (s *Server) categorySummary(c echo.Context) error {
	txns, err := s.selected(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, newGroups(aggregate.ByCategory(txns)))
}

func (s *Server) periodSummary(c echo.Context) error {
	g, err := aggregate.ParseGranularity(c.QueryParam("period"))
	if err != nil {
		return err
	}
	txns, err := s.selected(c)
	if err != nil {
		return err
	}
	periods, err := aggregate.ByPeriod(txns, g)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, newPeriods(periods))
}

func (s *Server) merchantSummary(c echo.Context) error {
	limit, err := intParam(c, "limit", DefaultMerchantLimit)
	if err != nil {
		return err
	}
	txns, err := s.selected(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, newGroups(aggregate.ByMerchant(txns, limit)))
}

func (s *Server) transactions(c echo.Context) error {
	opts := aggregate.ListOptions{SortBy: c.QueryParam("sort_by")}
	switch strings.ToLower(c.QueryParam("sort_dir")) {
	case "", "asc":
	case "desc":
		opts.SortDesc = true
	default:
		return fmt.Errorf("%w: sort_dir must be asc or desc", aggregate.ErrInvalidQuery)
	}
	var err error
	if opts.Limit, err = intParam(c, "limit", aggregate.DefaultListLimit); err != nil {
		return err
	}
	if opts.Offset, err = intParam(c, "offset", 0); err != nil {
		return err
	}

	txns, err := s.selected(c)
	if err != nil {
		return err
	}
	page, err := aggregate.List(txns, opts)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, newPage(page))
}

func (s *Server) runImport(c echo.Context) error {
	if !s.importing.TryLock() {
		return echo.NewHTTPError(http.StatusConflict, "an import is already running")
	}
	defer s.importing.Unlock()

	report, err := s.config.Import(c.Request().Context())
	switch {
	case err == nil:
		return c.JSON(http.StatusOK, report)
	case errors.Is(err, pipeline.ErrAllFilesFailed) && report != nil:
		return c.JSON(http.StatusUnprocessableEntity, report)
	default:
		return fmt.Errorf("running import: %w", err)
	}
}

func intParam(c echo.Context, name string, def int) (int, error) {
	raw := strings.TrimSpace(c.QueryParam(name))
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer", aggregate.ErrInvalidQuery, name)
	}
	if n < 0 {
		return 0, fmt.Errorf("%w: %s must not be negative", aggregate.ErrInvalidQuery, name)
	}
	return n, nil
}
