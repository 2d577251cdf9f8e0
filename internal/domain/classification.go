package domain

// Classification é o veredito da triagem de fraude.
type Classification int

const (
	Clear Classification = iota
	Suspicious
)

func (c Classification) String() string {
	if c == Suspicious {
		return "suspicious"
	}
	return "clear"
}
