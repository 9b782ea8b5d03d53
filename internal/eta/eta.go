package eta

// Travel-time model for matching. Distances are straight-line meters;
// a fixed average speed plus a fixed per-stage handling buffer stands in
// for real routing.
const (
	// AverageSpeedMetersPerMinute is the assumed carrier travel speed.
	AverageSpeedMetersPerMinute = 500.0
	// PickupBufferMinutes covers locating the donor and loading.
	PickupBufferMinutes = 10.0
	// DeliveryBufferMinutes covers unloading at the site.
	DeliveryBufferMinutes = 5.0
	// MaxTotalMinutes is the end-to-end budget; pairs above it are
	// never assigned.
	MaxTotalMinutes = 600.0
)

// PickupMinutes estimates donor-to-carrier pickup time.
func PickupMinutes(distanceMeters float64) float64 {
	return distanceMeters/AverageSpeedMetersPerMinute + PickupBufferMinutes
}

// DeliveryMinutes estimates carrier-to-site delivery time.
func DeliveryMinutes(distanceMeters float64) float64 {
	return distanceMeters/AverageSpeedMetersPerMinute + DeliveryBufferMinutes
}
