package leads

// WebsiteStatus is the classifier's categorical output for a website.
type WebsiteStatus int

const (
	StatusNotYetChecked WebsiteStatus = iota
	StatusAbsent
	StatusOld
	StatusModern
	StatusUnknown
)

func (s WebsiteStatus) String() string {
	switch s {
	case StatusAbsent:
		return "absent"
	case StatusOld:
		return "old"
	case StatusModern:
		return "modern"
	case StatusUnknown:
		return "unknown"
	default:
		return "not_yet_checked"
	}
}

// WebsiteVerdict is the full result of running the classifier cascade
// (or the absence of one) against a lead's website URL.
type WebsiteVerdict struct {
	Status       WebsiteStatus
	Confidence   float64
	Signals      []string
	CheckMethods map[string]bool
	ElapsedMS    int64
	Err          string
}

// NewNotYetChecked returns the zero-value verdict for a freshly parsed
// lead whose website has not been classified yet.
func NewNotYetChecked() WebsiteVerdict {
	return WebsiteVerdict{Status: StatusNotYetChecked, CheckMethods: map[string]bool{}}
}

// AddSignal appends a signal if not already present.
func (v *WebsiteVerdict) AddSignal(signal string) {
	for _, s := range v.Signals {
		if s == signal {
			return
		}
	}
	v.Signals = append(v.Signals, signal)
}

// MarkMethod records that a given cascade stage ("url", "header",
// "html") actually ran.
func (v *WebsiteVerdict) MarkMethod(method string) {
	if v.CheckMethods == nil {
		v.CheckMethods = map[string]bool{}
	}
	v.CheckMethods[method] = true
}
