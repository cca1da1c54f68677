package model

// Location is a physical venue. It owns one or more cinemas.
type Location struct {
	ID      uint64   `json:"id"`                // locations.id
	Address string   `json:"address"`           // locations.address
	Cinemas []Cinema `json:"cinemas,omitempty"` // cinemas at this location
}

// Cinema is a screening room within a Location. A cinema is identified by
// the pair (LocationID, ID); its seats and schedules always carry both.
type Cinema struct {
	ID           uint64 `json:"id"`            // cinemas.id
	LocationID   uint64 `json:"location_id"`   // cinemas.location_id
	FriendlyName string `json:"friendly_name"` // cinemas.friendly_name
}
