package pool

// Profile binds a named speed setting to a request rate and a concurrency limit.
// Callers select profiles by name to keep RPC back-pressure predictable.
type Profile struct {
	Name           string
	MaxRps         int
	MaxConcurrency int
}

// The named profiles.
var (
	Light   = Profile{Name: "light", MaxRps: 5, MaxConcurrency: 2}
	Medium  = Profile{Name: "medium", MaxRps: 10, MaxConcurrency: 4}
	Heavy   = Profile{Name: "heavy", MaxRps: 25, MaxConcurrency: 8}
	Extreme = Profile{Name: "extreme", MaxRps: 50, MaxConcurrency: 16}
)

var profiles = map[string]Profile{
	Light.Name:   Light,
	Medium.Name:  Medium,
	Heavy.Name:   Heavy,
	Extreme.Name: Extreme,
}

// ProfileByName returns the named profile.
// Unknown and empty names get Light.
func ProfileByName(name string) Profile {
	if p, ok := profiles[name]; ok {
		return p
	}
	return Light
}
