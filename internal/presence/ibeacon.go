// internal/presence/ibeacon.go
package presence

import (
	"encoding/binary"
	"encoding/hex"
)

// AppleCompanyID is the Bluetooth SIG company identifier carried in
// iBeacon manufacturer data.
const AppleCompanyID uint16 = 0x004C

// IBeacon is a decoded iBeacon advertisement.
type IBeacon struct {
	MAC     string
	UUID    string
	Major   uint16
	Minor   uint16
	TxPower int8 // measured power at 1 m, dBm
	RSSI    int16
}

// ParseIBeacon decodes Apple manufacturer data:
//
//	0x02 0x15 | uuid(16) | major(2) | minor(2) | tx power(1)
func ParseIBeacon(companyID uint16, data []byte) (IBeacon, bool) {
	if companyID != AppleCompanyID || len(data) < 23 {
		return IBeacon{}, false
	}
	if data[0] != 0x02 || data[1] != 0x15 {
		return IBeacon{}, false
	}
	return IBeacon{
		UUID:    formatUUID(data[2:18]),
		Major:   binary.BigEndian.Uint16(data[18:20]),
		Minor:   binary.BigEndian.Uint16(data[20:22]),
		TxPower: int8(data[22]),
	}, true
}

func formatUUID(b []byte) string {
	h := hex.EncodeToString(b)
	return h[0:8] + "-" + h[8:12] + "-" + h[12:16] + "-" + h[16:20] + "-" + h[20:32]
}
