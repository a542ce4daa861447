// Package catalog defines the game catalog data model and the strict
// parse/normalize boundary between raw scraped strings and typed records.
package catalog

import (
	"fmt"
	"regexp"

	"github.com/go-playground/validator/v10"
)

// Game is one catalog entry as served to the presentation layer.
// Field names follow the JSON contract consumed downstream.
type Game struct {
	ID       string  `json:"id" yaml:"id" validate:"required"`
	Name     string  `json:"name" yaml:"name" validate:"required"`
	ImageURL string  `json:"image" yaml:"image"`
	Category string  `json:"category" yaml:"category" validate:"required"`
	Provider string  `json:"provider" yaml:"provider"`
	Players  int     `json:"players" yaml:"players" validate:"gte=0"`
	RTP      *string `json:"rtp" yaml:"rtp" validate:"omitempty,rtp"`
	IsHot    bool    `json:"isHot" yaml:"isHot"`
	IsNew    bool    `json:"isNew" yaml:"isNew"`
}

var rtpFormat = regexp.MustCompile(`^\d{2,3}(?:\.\d+)?%$`)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// rtp validates the "NN.NN%" percentage shape.
	_ = v.RegisterValidation("rtp", func(fl validator.FieldLevel) bool {
		return rtpFormat.MatchString(fl.Field().String())
	})
	return v
}

// Validate checks the Game invariants: non-empty id and name, non-negative
// players, and a percentage-shaped rtp when present.
func (g Game) Validate() error {
	if err := validate.Struct(g); err != nil {
		return fmt.Errorf("invalid game record: %w", err)
	}
	return nil
}
