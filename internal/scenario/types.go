package scenario

import "time"

// Scenario is the root of a scenario file.
type Scenario struct {
	Name    string       `yaml:"name" validate:"required"`
	Course  CourseSpec   `yaml:"course" validate:"required"`
	Player  VehicleSpec  `yaml:"player" validate:"required"`
	Traffic *TrafficSpec `yaml:"traffic"`
	Zones   []ZoneSpec   `yaml:"zones" validate:"dive"`
}

// CourseSpec lists the waypoints of the loop. With Georeferenced set the
// positions are "lon,lat[,elev]" and are projected around the first one.
type CourseSpec struct {
	Georeferenced bool           `yaml:"georeferenced"`
	Waypoints     []WaypointSpec `yaml:"waypoints" validate:"required,min=1,dive"`
}

// WaypointSpec is a single named anchor.
type WaypointSpec struct {
	Name     string `yaml:"name" validate:"required"`
	Position string `yaml:"position" validate:"required"`
}

// AreaSpec is a box with an optional yaw around its parent.
type AreaSpec struct {
	Center string  `yaml:"center" validate:"required,vec3"`
	Size   string  `yaml:"size" validate:"required,vec3"`
	Yaw    float64 `yaml:"yaw"`
}

// PlacementSpec overrides the sampler defaults.
type PlacementSpec struct {
	Radius     *float64 `yaml:"radius" validate:"omitempty,gt=0"`
	WallMargin *float64 `yaml:"wallMargin" validate:"omitempty,gte=0"`
	Attempts   *int     `yaml:"attempts" validate:"omitempty,gt=0"`
	Mode       string   `yaml:"mode" validate:"omitempty,oneof=floor volume"`
}

// HeadingSpec picks how passenger headings are drawn.
type HeadingSpec struct {
	Mode  string  `yaml:"mode" validate:"omitempty,oneof=random360 fixed fixedWithNoise"`
	Angle float64 `yaml:"angle"`
	Noise float64 `yaml:"noise" validate:"gte=0"`
}

// VehicleSpec describes the player vehicle.
type VehicleSpec struct {
	Name       string         `yaml:"name" validate:"required"`
	Start      string         `yaml:"start" validate:"omitempty,vec3"`
	Toward     string         `yaml:"toward" validate:"omitempty,vec3"`
	Capacity   int            `yaml:"capacity" validate:"gte=0"`
	Speed      *float64       `yaml:"speed" validate:"omitempty,gte=0"`
	TurnRate   *float64       `yaml:"turnRate" validate:"omitempty,gte=0"`
	Cargo      *AreaSpec      `yaml:"cargo"`
	Placement  *PlacementSpec `yaml:"placement"`
	FootOffset string         `yaml:"footOffset" validate:"omitempty,vec3"`
	Heading    *HeadingSpec   `yaml:"heading"`
}

// TrafficSpec configures the AI spawner and the followers it creates.
type TrafficSpec struct {
	Count                 int      `yaml:"count" validate:"gte=0"`
	Radius                *float64 `yaml:"radius" validate:"omitempty,gte=0"`
	MinDistanceFromPlayer *float64 `yaml:"minDistanceFromPlayer" validate:"omitempty,gte=0"`
	MaxAttempts           *int     `yaml:"maxAttempts" validate:"omitempty,gt=0"`
	Speed                 *float64 `yaml:"speed" validate:"omitempty,gte=0"`
	TurnRate              *float64 `yaml:"turnRate" validate:"omitempty,gte=0"`
	DeactivateDistance    *float64 `yaml:"deactivateDistance" validate:"omitempty,gte=0"`
}

// CountSpec is the number of passengers generated at a boarding zone.
type CountSpec struct {
	Mode  string `yaml:"mode" validate:"omitempty,oneof=fixed randomRange"`
	Fixed int    `yaml:"fixed" validate:"gte=0"`
	Min   int    `yaml:"min" validate:"gte=0"`
	Max   int    `yaml:"max" validate:"gte=0"`
}

// ZoneSpec describes a boarding or unloading zone.
type ZoneSpec struct {
	Name          string         `yaml:"name" validate:"required"`
	Kind          string         `yaml:"kind" validate:"required,oneof=boarding unloading in out"`
	Persistence   string         `yaml:"persistence" validate:"omitempty,oneof=singleUse persistent"`
	Center        string         `yaml:"center" validate:"required,vec3"`
	Radius        *float64       `yaml:"radius" validate:"omitempty,gt=0"`
	StopThreshold *float64       `yaml:"stopThreshold" validate:"omitempty,gte=0"`
	InitialDelay  *time.Duration `yaml:"initialDelay" validate:"omitempty,gte=0"`
	Interval      *time.Duration `yaml:"interval" validate:"omitempty,gte=0"`
	BatchSize     int            `yaml:"batchSize" validate:"gte=0"`
	Area          *AreaSpec      `yaml:"area"`
	Placement     *PlacementSpec `yaml:"placement"`
	FootOffset    string         `yaml:"footOffset" validate:"omitempty,vec3"`
	Waiting       *CountSpec     `yaml:"waiting"`
	PitchStep     *float64       `yaml:"pitchStep" validate:"omitempty,gte=0"`
	MaxPitch      *float64       `yaml:"maxPitch" validate:"omitempty,gt=0"`
}
