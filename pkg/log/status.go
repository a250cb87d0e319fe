package log

import (
	"fmt"

	"github.com/gopcua/opcua/ua"
)

// StatusText renders an OPC UA status code with its symbolic name.
func StatusText(code uint32) string {
	return fmt.Sprintf("0x%08X (%s)", code, ua.StatusCode(code).Error())
}
