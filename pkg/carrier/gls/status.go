package gls

import (
	"strings"

	"github.com/dfoddav2/shopickup-integration-layer-sub000/pkg/carrier"
)

// Status tables are data, not code: GLS revises its codes periodically
// and these maps are edited without touching the mapping logic. Unknown
// codes never abort; they map to PENDING.

// numericStatusCodes maps GLS numeric status codes to the canonical set.
var numericStatusCodes = map[string]carrier.TrackingStatus{
	"1":  carrier.TrackingPending,        // parcel data transmitted
	"2":  carrier.TrackingInTransit,      // left the origin depot
	"3":  carrier.TrackingOutForDelivery, // on the delivery vehicle
	"4":  carrier.TrackingException,      // not delivered
	"5":  carrier.TrackingDelivered,
	"6":  carrier.TrackingDelivered, // delivered to neighbour
	"7":  carrier.TrackingInTransit, // inbound to destination depot
	"8":  carrier.TrackingInTransit, // stored in depot
	"9":  carrier.TrackingException, // address clarification needed
	"10": carrier.TrackingInTransit, // customs clearance
	"11": carrier.TrackingReturned,  // returned to sender
	"12": carrier.TrackingCancelled, // cancelled by sender
	"13": carrier.TrackingException, // refused by recipient
	"14": carrier.TrackingInTransit, // forwarded to partner
	"15": carrier.TrackingException, // damaged
	"16": carrier.TrackingDelivered, // delivered to parcel shop
	"17": carrier.TrackingInTransit, // stored in parcel shop
	"18": carrier.TrackingException, // not collected from parcel shop
	"19": carrier.TrackingReturned,  // return in transit
	"20": carrier.TrackingPending,   // pickup scheduled
	"21": carrier.TrackingException, // wrong postal code
	"22": carrier.TrackingException, // recipient unknown
	"23": carrier.TrackingInTransit, // rerouted
	"24": carrier.TrackingDelivered, // delivered with signature
	"25": carrier.TrackingInTransit, // sorting error, delayed
	"51": carrier.TrackingPending,   // label produced, parcel not yet handed over
	"99": carrier.TrackingException, // miscellaneous irregularity
}

// localizedStatuses maps localized status strings, matched
// case-insensitively after trimming. GLS spells the same status
// differently across its country portals, so all documented variants are
// listed. The canonical tokens themselves are included, which keeps the
// mapping idempotent on the canonical side.
var localizedStatuses = map[string]carrier.TrackingStatus{
	// canonical tokens
	"pending":          carrier.TrackingPending,
	"in_transit":       carrier.TrackingInTransit,
	"out_for_delivery": carrier.TrackingOutForDelivery,
	"delivered":        carrier.TrackingDelivered,
	"exception":        carrier.TrackingException,
	"returned":         carrier.TrackingReturned,
	"cancelled":        carrier.TrackingCancelled,

	// English
	"parcel data transmitted":      carrier.TrackingPending,
	"the parcel data was entered":  carrier.TrackingPending,
	"preadvice":                    carrier.TrackingPending,
	"in transit":                   carrier.TrackingInTransit,
	"left the parcel center":       carrier.TrackingInTransit,
	"arrived at the parcel center": carrier.TrackingInTransit,
	"in warehouse":                 carrier.TrackingInTransit,
	"stored":                       carrier.TrackingInTransit,
	"out for delivery":             carrier.TrackingOutForDelivery,
	"on delivery vehicle":          carrier.TrackingOutForDelivery,
	"handed over to the courier":   carrier.TrackingOutForDelivery,
	"delivered to the consignee":   carrier.TrackingDelivered,
	"delivered to a parcel shop":   carrier.TrackingDelivered,
	"delivered to neighbour":       carrier.TrackingDelivered,
	"delivery unsuccessful":        carrier.TrackingException,
	"not delivered":                carrier.TrackingException,
	"consignee not reached":        carrier.TrackingException,
	"refused by consignee":         carrier.TrackingException,
	"address incorrect":            carrier.TrackingException,
	"returned to sender":           carrier.TrackingReturned,
	"return to sender in progress": carrier.TrackingReturned,
	"cancelled by sender":          carrier.TrackingCancelled,

	// Hungarian
	"csomagadatok rögzítve":       carrier.TrackingPending,
	"a csomag adatai beérkeztek":  carrier.TrackingPending,
	"úton":                        carrier.TrackingInTransit,
	"depóba érkezett":             carrier.TrackingInTransit,
	"a csomag elhagyta a depót":   carrier.TrackingInTransit,
	"raktározás alatt":            carrier.TrackingInTransit,
	"kiszállítás alatt":           carrier.TrackingOutForDelivery,
	"futárnál":                    carrier.TrackingOutForDelivery,
	"kézbesítve":                  carrier.TrackingDelivered,
	"csomagpontra kézbesítve":     carrier.TrackingDelivered,
	"szomszédnak átadva":          carrier.TrackingDelivered,
	"sikertelen kézbesítés":       carrier.TrackingException,
	"a címzett nem volt elérhető": carrier.TrackingException,
	"átvétel megtagadva":          carrier.TrackingException,
	"hibás cím":                   carrier.TrackingException,
	"visszaküldve a feladónak":    carrier.TrackingReturned,
	"visszaszállítás alatt":       carrier.TrackingReturned,
	"törölve":                     carrier.TrackingCancelled,

	// German
	"paketdaten übermittelt":         carrier.TrackingPending,
	"unterwegs":                      carrier.TrackingInTransit,
	"im paketzentrum eingetroffen":   carrier.TrackingInTransit,
	"hat das paketzentrum verlassen": carrier.TrackingInTransit,
	"eingelagert":                    carrier.TrackingInTransit,
	"in zustellung":                  carrier.TrackingOutForDelivery,
	"auf dem zustellfahrzeug":        carrier.TrackingOutForDelivery,
	"zugestellt":                     carrier.TrackingDelivered,
	"im paketshop zugestellt":        carrier.TrackingDelivered,
	"an nachbarn zugestellt":         carrier.TrackingDelivered,
	"zustellung nicht möglich":       carrier.TrackingException,
	"empfänger nicht angetroffen":    carrier.TrackingException,
	"annahme verweigert":             carrier.TrackingException,
	"adresse fehlerhaft":             carrier.TrackingException,
	"rücksendung an absender":        carrier.TrackingReturned,
	"storniert":                      carrier.TrackingCancelled,

	// Czech
	"data zásilky přijata":      carrier.TrackingPending,
	"v přepravě":                carrier.TrackingInTransit,
	"přijato na depo":           carrier.TrackingInTransit,
	"opustilo depo":             carrier.TrackingInTransit,
	"uskladněno":                carrier.TrackingInTransit,
	"v doručování":              carrier.TrackingOutForDelivery,
	"předáno kurýrovi":          carrier.TrackingOutForDelivery,
	"doručeno":                  carrier.TrackingDelivered,
	"doručeno na výdejní místo": carrier.TrackingDelivered,
	"doručení se nezdařilo":     carrier.TrackingException,
	"příjemce nezastižen":       carrier.TrackingException,
	"odmítnuto příjemcem":       carrier.TrackingException,
	"chybná adresa":             carrier.TrackingException,
	"vráceno odesílateli":       carrier.TrackingReturned,
	"zrušeno":                   carrier.TrackingCancelled,
}

// MapStatusCode normalizes a GLS status code or localized status string
// to the canonical tracking status. Unknown codes map to PENDING.
func MapStatusCode(code string) carrier.TrackingStatus {
	trimmed := strings.TrimSpace(code)
	if status, ok := numericStatusCodes[trimmed]; ok {
		return status
	}
	if status, ok := localizedStatuses[strings.ToLower(trimmed)]; ok {
		return status
	}
	return carrier.TrackingPending
}
