package models

// LocalityUnknown is the sentinel code for values outside the lookup.
const LocalityUnknown = 0

// UnknownLocalityName labels LocalityUnknown.
const UnknownLocalityName = "Unknown"

var localities = map[int]string{
	1:  "Usaquén",
	2:  "Chapinero",
	3:  "Santa Fe",
	4:  "San Cristóbal",
	5:  "Usme",
	6:  "Tunjuelito",
	7:  "Bosa",
	8:  "Kennedy",
	9:  "Fontibón",
	10: "Engativá",
	11: "Suba",
	12: "Barrios Unidos",
	13: "Teusaquillo",
	14: "Los Mártires",
	15: "Antonio Nariño",
	16: "Puente Aranda",
	17: "La Candelaria",
	18: "Rafael Uribe Uribe",
	19: "Ciudad Bolívar",
	20: "Sumapaz",
}

// LocalityName resolves a locality code; unknown codes yield "Unknown".
func LocalityName(code int) string {
	if name, ok := localities[code]; ok {
		return name
	}
	return UnknownLocalityName
}

// KnownLocality reports whether code is in the 1–20 lookup.
func KnownLocality(code int) bool {
	_, ok := localities[code]
	return ok
}

// LocalityCodes returns the known codes in ascending order.
func LocalityCodes() []int {
	codes := make([]int, 0, len(localities))
	for code := 1; code <= len(localities); code++ {
		codes = append(codes, code)
	}
	return codes
}
