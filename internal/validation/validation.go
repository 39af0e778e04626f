package validation

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/kjstillabower/weather-outfit-service/internal/models"
)

// Grid bounds of the KMA 5 km Lambert conformal grid over the Korean
// peninsula. Keep in sync with the gridQuery tags.
const (
	MaxNX = 149
	MaxNY = 253
)

var maxByField = map[string]int{"nx": MaxNX, "ny": MaxNY}

// ErrGridNotInteger is returned when nx or ny is present but not an integer.
var ErrGridNotInteger = errors.New("grid coordinate must be an integer")

// ErrGridOutOfRange is returned when nx or ny falls outside the forecast grid.
var ErrGridOutOfRange = errors.New("grid coordinate out of range")

var validate = validator.New()

type gridQuery struct {
	NX int `validate:"min=1,max=149"`
	NY int `validate:"min=1,max=253"`
}

// ParseGrid reads nx and ny query values. An absent (empty) value takes the
// matching coordinate of def. Returns an error suitable for 400 INVALID_GRID
// responses.
func ParseGrid(nxRaw, nyRaw string, def models.GridCoordinate) (models.GridCoordinate, error) {
	nx, err := parseCoord("nx", nxRaw, def.NX)
	if err != nil {
		return models.GridCoordinate{}, err
	}
	ny, err := parseCoord("ny", nyRaw, def.NY)
	if err != nil {
		return models.GridCoordinate{}, err
	}
	grid := models.GridCoordinate{NX: nx, NY: ny}
	if err := ValidateGrid(grid); err != nil {
		return models.GridCoordinate{}, err
	}
	return grid, nil
}

// ValidateGrid checks that grid lies within the forecast grid.
func ValidateGrid(grid models.GridCoordinate) error {
	if err := validate.Struct(gridQuery{NX: grid.NX, NY: grid.NY}); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			field := strings.ToLower(verrs[0].Field())
			return fmt.Errorf("%w: %s=%v (valid 1..%d)", ErrGridOutOfRange, field, verrs[0].Value(), maxByField[field])
		}
		return fmt.Errorf("%w: %v", ErrGridOutOfRange, err)
	}
	return nil
}

func parseCoord(name, raw string, def int) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s=%q", ErrGridNotInteger, name, raw)
	}
	return n, nil
}
