package httpapi

import (
	"context"
	"errors"
	"net/url"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"

	"github.com/i474232898/weather-observations/internal/store"
	"github.com/i474232898/weather-observations/internal/weather"
)

var validate = validator.New()

// requestTimeout bounds the upstream fetch behind a single API request.
const requestTimeout = 20 * time.Second

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, service *weather.Service) {
	v1 := app.Group("/api/v1")

	v1.Get("/fmi/stations/:id/latest", func(c *fiber.Ctx) error {
		id, err := stationParam(c)
		if err != nil {
			return err
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		obs, ok, err := service.LatestObservation(ctx, id)
		if err != nil {
			return upstreamError(err)
		}
		if !ok {
			return fiber.NewError(fiber.StatusNotFound, "no observation available for station")
		}
		return c.JSON(obs)
	})

	foreca := v1.Group("/foreca/:locality")

	foreca.Get("/observations", func(c *fiber.Ctx) error {
		locality, err := localityParam(c)
		if err != nil {
			return err
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		all, err := service.LocalityObservations(ctx, locality)
		if err != nil {
			return upstreamError(err)
		}
		return c.JSON(all)
	})

	foreca.Get("/observations/:id", func(c *fiber.Ctx) error {
		locality, err := localityParam(c)
		if err != nil {
			return err
		}
		id, err := stationParam(c)
		if err != nil {
			return err
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		obs, ok, err := service.LocalityObservation(ctx, locality, id)
		if err != nil {
			return upstreamError(err)
		}
		if !ok {
			return fiber.NewError(fiber.StatusNotFound, "no observation available for station")
		}
		return c.JSON(obs)
	})

	foreca.Get("/stations", func(c *fiber.Ctx) error {
		locality, err := localityParam(c)
		if err != nil {
			return err
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		dir, ok, err := service.LocalityStations(ctx, locality)
		if err != nil {
			return upstreamError(err)
		}
		if !ok {
			return fiber.NewError(fiber.StatusNotFound, "no stations listed for locality")
		}
		return c.JSON(dir)
	})

	v1.Get("/series", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"series": service.ListSeries(),
		})
	})

	v1.Get("/history", func(c *fiber.Ctx) error {
		var req historyQuery
		if err := req.bind(c); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		observations, err := service.GetRange(req.Series, req.From, req.To)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "no observations recorded for requested range")
			}
			return fiber.NewError(fiber.StatusInternalServerError, "failed to read observation history")
		}

		return c.JSON(fiber.Map{
			"series":       req.Series,
			"from":         req.From,
			"to":           req.To,
			"observations": observations,
		})
	})
}

func requestContext(c *fiber.Ctx) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.UserContext(), requestTimeout)
}

// upstreamError maps a provider failure to an HTTP error.
func upstreamError(err error) error {
	if errors.Is(err, weather.ErrDataFormat) {
		return fiber.NewError(fiber.StatusBadGateway, "upstream returned unparseable data")
	}
	return fiber.NewError(fiber.StatusInternalServerError, "failed to fetch weather data")
}

type stationQuery struct {
	ID int `validate:"gt=0"`
}

func stationParam(c *fiber.Ctx) (int, error) {
	id, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return 0, fiber.NewError(fiber.StatusBadRequest, "station id must be an integer")
	}
	if err := validate.Struct(stationQuery{ID: id}); err != nil {
		return 0, fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	return id, nil
}

type localityQuery struct {
	Locality string `validate:"required,max=100"`
}

func localityParam(c *fiber.Ctx) (string, error) {
	// Params are only valid for the lifetime of the handler; copy it.
	q := localityQuery{Locality: utils.CopyString(c.Params("locality"))}
	if decoded, err := url.PathUnescape(q.Locality); err == nil {
		q.Locality = decoded
	}
	if err := validate.Struct(q); err != nil {
		return "", fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	return q.Locality, nil
}

// historyQuery holds query parameters for the history endpoint.
type historyQuery struct {
	Series string    `validate:"required"`
	From   time.Time `validate:"required"`
	To     time.Time `validate:"required,gtefield=From"`
}

func (h *historyQuery) bind(c *fiber.Ctx) error {
	h.Series = c.Query("series")

	fromStr := c.Query("from")
	toStr := c.Query("to")
	if fromStr == "" || toStr == "" {
		return errors.New("from and to query parameters are required")
	}

	from, err := parseTime(fromStr)
	if err != nil {
		return err
	}
	to, err := parseTime(toStr)
	if err != nil {
		return err
	}

	h.From = from
	h.To = to
	return nil
}

// parseTime tries to parse either RFC3339 or Unix seconds.
func parseTime(s string) (time.Time, error) {
	if ts, err := time.Parse(time.RFC3339, s); err == nil {
		return ts, nil
	}
	if unix, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(unix, 0).UTC(), nil
	}
	return time.Time{}, errors.New("invalid time format; use RFC3339 or unix seconds")
}
