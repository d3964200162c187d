package bsec

// Known I2C addresses on the sensor bus. The scan verb reports a part
// name when an acking address matches; unknown addresses still appear,
// just unnamed.
var knownParts = map[uint16]string{
	0x76: "BME688",
	0x77: "BME688",
	0x44: "SHT40",
	0x45: "SHT40",
	0x23: "BH1750",
	0x59: "SGP40",
	0x3C: "SSD1306",
	0x3D: "SSD1306",
	0x48: "ADS1115",
	0x49: "ADS1115",
	0x20: "MCP23017",
	0x21: "MCP23017",
	0x40: "PCA9685",
	0x50: "EEPROM",
	0x51: "EEPROM",
}

// Identify names the part usually found at addr.
func Identify(addr uint16) (string, bool) {
	name, ok := knownParts[addr]
	return name, ok
}
