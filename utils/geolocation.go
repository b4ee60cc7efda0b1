package utils

import "fmt"

// MapsURL builds the Google Maps search link attached to emergency payloads.
func MapsURL(latitude, longitude float64) string {
	return fmt.Sprintf("https://www.google.com/maps/search/?api=1&query=%v,%v", latitude, longitude)
}
