package types

import "time"

type Favorite struct {
	CreatureNumber int       `json:"creature_number"`
	AddedAt        time.Time `json:"added_at"`
}

type FavoriteStatus struct {
	CreatureNumber int  `json:"creature_number"`
	Favorite       bool `json:"favorite"`
}
