package gls

import (
	"sort"
	"strings"

	"github.com/dfoddav2/shopickup-integration-layer-sub000/pkg/carrier"
)

// weekdayNames indexes the feed's hour entries, which always start with
// Monday regardless of locale.
var weekdayNames = [7]string{
	"monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday",
}

// translatePickupPoint converts one feed entry to the canonical form.
func translatePickupPoint(country string, dp DeliveryPoint) carrier.PickupPoint {
	point := carrier.PickupPoint{
		ID:             dp.ID,
		ProviderID:     "gls",
		Name:           dp.Name,
		Country:        strings.ToLower(country),
		PostalCode:     dp.Address.ZipCode,
		City:           dp.Address.City,
		Street:         dp.Address.Street,
		OpeningHours:   translateHours(dp.Hours),
		PickupAllowed:  hasFeature(dp.Features, "pickup"),
		DropoffAllowed: hasFeature(dp.Features, "dropoff"),
		IsOutdoor:      isLockerType(dp.Type),
		PaymentOptions: dp.PaymentOptions,
		Metadata:       map[string]string{"type": dp.Type},
		Raw:            dp,
	}
	if len(dp.Location) >= 2 {
		point.Latitude = dp.Location[0]
		point.Longitude = dp.Location[1]
	}
	if dp.Contact.Phone != "" || dp.Contact.Email != "" {
		point.Contact = &carrier.Contact{Phone: dp.Contact.Phone, Email: dp.Contact.Email}
	}
	return point
}

// translateHours converts the feed's Monday-first hour rows into a
// weekday-keyed map. A nil row means the point is closed that day. Rows
// with four entries carry a lunch break; the published span keeps the
// first opening and the last closing time.
func translateHours(rows [][]string) map[string]string {
	hours := make(map[string]string, len(rows))
	for i, row := range rows {
		if i >= len(weekdayNames) || len(row) < 2 {
			continue
		}
		hours[weekdayNames[i]] = row[0] + " - " + row[len(row)-1]
	}
	if len(hours) == 0 {
		return nil
	}
	return hours
}

// sortPickupPoints orders points for callers that page or diff the
// feed. Supported keys: name, city, zip; anything else keeps feed
// order.
func sortPickupPoints(points []carrier.PickupPoint, orderBy string) {
	var key func(p *carrier.PickupPoint) string
	switch strings.ToLower(orderBy) {
	case "name":
		key = func(p *carrier.PickupPoint) string { return p.Name }
	case "city":
		key = func(p *carrier.PickupPoint) string { return p.City }
	case "zip":
		key = func(p *carrier.PickupPoint) string { return p.PostalCode }
	default:
		return
	}
	sort.SliceStable(points, func(i, j int) bool {
		return key(&points[i]) < key(&points[j])
	})
}

func hasFeature(features []string, name string) bool {
	for _, f := range features {
		if strings.EqualFold(f, name) {
			return true
		}
	}
	return false
}

// Parcel lockers are free-standing machines, so a locker type implies an
// outdoor point.
func isLockerType(pointType string) bool {
	return strings.Contains(strings.ToLower(pointType), "locker")
}
