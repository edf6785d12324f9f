package collector

import (
	"github.com/axians/clientlog/arena"
)

// biosField is one line of [bios]: the registry value name that labels it
// and the DMI attribute that carries it on other systems.
type biosField struct {
	Key string
	DMI string
}

var biosFields = [...]biosField{
	{"SystemProductName", "product_name"},
	{"SystemManufacturer", "sys_vendor"},
	{"BaseBoardManufacturer", "board_vendor"},
	{"BIOSVendor", "bios_vendor"},
	{"BIOSVersion", "bios_version"},
	{"BIOSReleaseDate", "bios_date"},
}

func appendBIOSField(s *arena.Scratch, key, value string, ok bool) error {
	if !ok {
		value = "(Unable to read)"
	}
	return s.Appendf("\n%21s:\t%s", key, value)
}
