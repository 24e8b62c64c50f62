package ffmpeg

import "fmt"

// OptionType is a typed ffmpeg input option.
type OptionType string

// Input options understood by the decode builder.
const (
	OptionGeneratePTS    OptionType = "genpts"
	OptionIgnoreDTS      OptionType = "igndts"
	OptionIgnoreErrors   OptionType = "ignore_err"
	OptionDiscardCorrupt OptionType = "discardcorrupt"
	OptionLowDelay       OptionType = "low_delay"
)

// Option describes an input option and the arguments it expands to.
type Option struct {
	Key         OptionType
	Name        string
	Description string
	Args        []string
}

// AvailableOptions lists the supported input options.
var AvailableOptions = []Option{
	{
		Key:         OptionGeneratePTS,
		Name:        "Generate PTS",
		Description: "Generate missing presentation timestamps",
		Args:        []string{"-fflags", "+genpts"},
	},
	{
		Key:         OptionIgnoreDTS,
		Name:        "Ignore DTS",
		Description: "Ignore decoding timestamps",
		Args:        []string{"-fflags", "+igndts"},
	},
	{
		Key:         OptionIgnoreErrors,
		Name:        "Ignore Errors",
		Description: "Keep decoding past corrupt packets",
		Args:        []string{"-err_detect", "ignore_err"},
	},
	{
		Key:         OptionDiscardCorrupt,
		Name:        "Discard Corrupt",
		Description: "Drop corrupt packets instead of passing them to the decoder",
		Args:        []string{"-fflags", "+discardcorrupt"},
	},
	{
		Key:         OptionLowDelay,
		Name:        "Low Delay",
		Description: "Minimize decoder buffering",
		Args:        []string{"-flags", "low_delay"},
	},
}

// GetOptionByKey returns the option for a key, or nil.
func GetOptionByKey(key OptionType) *Option {
	for i := range AvailableOptions {
		if AvailableOptions[i].Key == key {
			return &AvailableOptions[i]
		}
	}
	return nil
}

// ValidateOptions rejects unknown and duplicated options.
func ValidateOptions(selected []OptionType) error {
	seen := make(map[OptionType]bool, len(selected))
	for _, key := range selected {
		if GetOptionByKey(key) == nil {
			return fmt.Errorf("unknown ffmpeg option: %s", key)
		}
		if seen[key] {
			return fmt.Errorf("duplicate ffmpeg option: %s", key)
		}
		seen[key] = true
	}
	return nil
}

// ParseOptions converts option names from configuration into typed options.
func ParseOptions(names []string) ([]OptionType, error) {
	opts := make([]OptionType, 0, len(names))
	for _, name := range names {
		opts = append(opts, OptionType(name))
	}
	if err := ValidateOptions(opts); err != nil {
		return nil, err
	}
	return opts, nil
}
