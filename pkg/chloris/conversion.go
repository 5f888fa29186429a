package chloris

// carbonToCO2e is the molar mass ratio of CO2 to carbon.
const carbonToCO2e = 44.0 / 12.0

// ToTCO2e converts megagrams of aboveground biomass to metric tons of CO2
// equivalent, assuming biomass is half carbon by mass.
func ToTCO2e(biomassMg float64) float64 {
	return biomassMg * 0.5 * carbonToCO2e
}
