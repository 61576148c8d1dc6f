package session

import (
	"strings"

	qrcode "github.com/skip2/go-qrcode"
)

// AddressQR renders addr as a terminal QR code using half-block characters.
func AddressQR(addr string) (string, error) {
	q, err := qrcode.New(addr, qrcode.Medium)
	if err != nil {
		return "", err
	}
	return strings.TrimRight(q.ToSmallString(false), "\n"), nil
}
