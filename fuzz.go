package dex

func Fuzz(data []byte) int {
	c, err := Parse(data, "fuzz.dex")
	if err != nil {
		return 0
	}
	if _, err := Serialize(c, true); err != nil {
		return 0
	}
	return 1
}
