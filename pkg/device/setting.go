// SPDX-License-Identifier: BSD-3-Clause

package device

// TempSourceRef names a temperature reading on some device by its globally
// unique external name, optionally disambiguated by the owning device's
// identity.
type TempSourceRef struct {
	Device   *Identity
	TempName string
}

// ProfilePoint is one (temperature, duty) pair of an uncanonicalized or
// canonicalized Profile, expressed with the field names used on the wire.
type ProfilePoint struct {
	TempC int
	Duty  int
}

// Lighting is a pass-through lighting command; control logic never
// interprets its fields beyond forwarding them to a repository.
type Lighting struct {
	Mode        string
	Colors      []string
	TimePerColor int
	Speed        int
	Direction    string
}

// LCD is a pass-through LCD/screen command, forwarded as-is to a
// repository.
type LCD struct {
	Mode  string
	Value string
}

// Setting is a single user command against one channel of one device.
// Exactly one of Fixed, Profile, Lighting, LCD, or ResetToDefault should be
// set; callers are responsible for that exclusivity.
type Setting struct {
	ChannelName    string
	Fixed          *int
	Profile        []ProfilePoint
	Lighting       *Lighting
	LCD            *LCD
	ResetToDefault bool
	TempSource     *TempSourceRef
	PWMMode        *int
}
