package models

import "fmt"

// Place is a named display slot on a page. Width and Height are optional
// and only used to describe the slot.
type Place struct {
	ID     int    `json:"id"`
	Name   string `json:"name"`
	Slug   string `json:"slug"`
	Width  *int   `json:"width,omitempty"`
	Height *int   `json:"height,omitempty"`
}

// SizeString describes the declared size of the place. Missing dimensions are
// rendered as "X"; an empty string is returned when neither is set.
func (p *Place) SizeString() string {
	w := p.Width != nil && *p.Width != 0
	h := p.Height != nil && *p.Height != 0
	switch {
	case w && h:
		return fmt.Sprintf("%dx%d", *p.Width, *p.Height)
	case w:
		return fmt.Sprintf("%dxX", *p.Width)
	case h:
		return fmt.Sprintf("Xx%d", *p.Height)
	default:
		return ""
	}
}

// String returns the name followed by the size when one is declared.
func (p *Place) String() string {
	if size := p.SizeString(); size != "" {
		return fmt.Sprintf("%s (%s)", p.Name, size)
	}
	return p.Name
}
