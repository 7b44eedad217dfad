package server

import (
	"encoding/json"
	"errors"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
)

const (
	msgMissingFields   = "name and/or episodes_seen are missing."
	msgInvalidEpisodes = "episodes_seen must be a non-negative integer"
)

var errInvalidEpisodes = errors.New(msgInvalidEpisodes)

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// notblank ships with validator but is not registered by default.
	_ = v.RegisterValidation("notblank", validators.NotBlank)
	return v
}

// showForm is a create request after the raw values have been converted.
type showForm struct {
	Name         *string `validate:"required,notblank"`
	EpisodesSeen *int    `validate:"required,min=0"`
}

func (f showForm) input() ShowInput {
	return ShowInput{Name: strings.TrimSpace(*f.Name), EpisodesSeen: *f.EpisodesSeen}
}

// rawShow is the wire shape shared by JSON create and update bodies.
// episodes_seen may arrive as a number or as a numeric string.
type rawShow struct {
	Name         *string         `json:"name"`
	EpisodesSeen json.RawMessage `json:"episodes_seen"`
}

func (r rawShow) episodes() (*int, error) {
	if len(r.EpisodesSeen) == 0 || string(r.EpisodesSeen) == "null" {
		return nil, nil
	}
	var n int
	if err := json.Unmarshal(r.EpisodesSeen, &n); err == nil {
		return &n, nil
	}
	var s string
	if err := json.Unmarshal(r.EpisodesSeen, &s); err != nil {
		return nil, errInvalidEpisodes
	}
	return parseEpisodes(s)
}

func parseEpisodes(value string) (*int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return nil, errInvalidEpisodes
	}
	return &n, nil
}

// validationMessage maps validator failures onto the messages clients see.
func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return msgMissingFields
	}
	for _, fe := range verrs {
		if fe.Field() == "EpisodesSeen" && fe.Tag() == "min" {
			return msgInvalidEpisodes
		}
	}
	return msgMissingFields
}
