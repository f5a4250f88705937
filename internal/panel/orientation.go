package panel

import "fmt"

// Orientation is how the panel is mounted relative to the device.
type Orientation int

const (
	OrientationUnknown Orientation = iota
	OrientationNormal
	OrientationBottomUp
	OrientationLeftUp
	OrientationRightUp
)

func (o Orientation) String() string {
	switch o {
	case OrientationNormal:
		return "normal"
	case OrientationBottomUp:
		return "upside_down"
	case OrientationLeftUp:
		return "left_side_up"
	case OrientationRightUp:
		return "right_side_up"
	default:
		return "unknown"
	}
}

// OrientationFromRotation maps a mounting rotation in degrees to an
// Orientation. A nil rotation means the board did not describe one.
func OrientationFromRotation(deg *int) (Orientation, error) {
	if deg == nil {
		return OrientationUnknown, nil
	}
	switch *deg {
	case 0:
		return OrientationNormal, nil
	case 90:
		return OrientationRightUp, nil
	case 180:
		return OrientationBottomUp, nil
	case 270:
		return OrientationLeftUp, nil
	default:
		return OrientationUnknown, fmt.Errorf("%w: rotation %d is not 0, 90, 180 or 270", ErrConfig, *deg)
	}
}
