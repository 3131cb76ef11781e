package types

// Creature is the root row of the catalog aggregate.
type Creature struct {
	ID          int      `json:"id"`
	Number      int      `json:"number" example:"25"`
	Name        string   `json:"name" example:"Pikachu"`
	Height      *float64 `json:"height,omitempty" example:"0.4"`
	Weight      *float64 `json:"weight,omitempty" example:"6"`
	Description *string  `json:"description,omitempty"`
	ImageURL    *string  `json:"image_url,omitempty"`
	Generation  int      `json:"generation" example:"1"`
}

type CreatureType struct {
	ID    int     `json:"id"`
	Name  string  `json:"name" example:"Electric"`
	Icon  *string `json:"icon,omitempty"`
	Color *string `json:"color,omitempty" example:"#F7D02C"`
}

// Stats are the six base values, each in [1,255].
type Stats struct {
	HP             int `json:"hp"`
	Attack         int `json:"attack"`
	Defense        int `json:"defense"`
	Speed          int `json:"speed"`
	SpecialAttack  int `json:"special_attack"`
	SpecialDefense int `json:"special_defense"`
}

// Values returns the six stats in storage order.
func (s Stats) Values() [6]int {
	return [6]int{s.HP, s.Attack, s.Defense, s.Speed, s.SpecialAttack, s.SpecialDefense}
}

func (s Stats) Total() int {
	total := 0
	for _, v := range s.Values() {
		total += v
	}
	return total
}

// Valid reports whether every stat is within [1,255].
func (s Stats) Valid() bool {
	for _, v := range s.Values() {
		if v < 1 || v > 255 {
			return false
		}
	}
	return true
}

// StatsView is Stats with the derived total.
type StatsView struct {
	Stats
	Total int `json:"total"`
}

type Evolution struct {
	ID            int     `json:"id"`
	OriginID      int     `json:"origin_id"`
	DestinationID int     `json:"destination_id"`
	Level         *int    `json:"level,omitempty"`
	Method        *string `json:"method,omitempty"`
}

// EvolutionView is an outgoing edge as shown on the origin creature.
type EvolutionView struct {
	ID              int     `json:"id"`
	OriginName      string  `json:"origin_name"`
	DestinationName string  `json:"destination_name"`
	Level           *int    `json:"level,omitempty"`
	Method          *string `json:"method,omitempty"`
}

// CreatureView is the read model of one aggregate. Evolutions lists
// outgoing edges only.
type CreatureView struct {
	Creature
	Types      []string        `json:"types"`
	Stats      *StatsView      `json:"stats,omitempty"`
	Evolutions []EvolutionView `json:"evolutions"`
}

// CreateCreatureParams describes a new aggregate. Types are ordered: the
// first one is the primary type.
type CreateCreatureParams struct {
	Number      int      `json:"number" validate:"required,gt=0"`
	Name        string   `json:"name" validate:"required,max=50"`
	Height      *float64 `json:"height,omitempty"`
	Weight      *float64 `json:"weight,omitempty"`
	Description *string  `json:"description,omitempty"`
	Generation  int      `json:"generation"`
	Types       []string `json:"types"`
	Stats       *Stats   `json:"stats,omitempty"`
}

// UpdateCreatureParams is a patch: nil fields are left untouched. A non-nil
// Types replaces the whole type set, even when it points at an empty slice.
type UpdateCreatureParams struct {
	Number      *int      `json:"number,omitempty"`
	Name        *string   `json:"name,omitempty"`
	Height      *float64  `json:"height,omitempty"`
	Weight      *float64  `json:"weight,omitempty"`
	Description *string   `json:"description,omitempty"`
	Generation  *int      `json:"generation,omitempty"`
	Types       *[]string `json:"types,omitempty"`
	Stats       *Stats    `json:"stats,omitempty"`
}

type AddEvolutionParams struct {
	DestinationID int     `json:"destination_id" validate:"required"`
	Level         *int    `json:"level,omitempty" validate:"omitempty,gte=1,lte=100"`
	Method        *string `json:"method,omitempty" validate:"omitempty,max=100"`
}
