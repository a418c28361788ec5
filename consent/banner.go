package consent

import "maps"

// Role is the function of a banner control.
type Role string

const (
	RoleAccept   Role = "accept"
	RoleReject   Role = "reject"
	RoleManage   Role = "manage"
	RoleClose    Role = "close"
	RoleMoreInfo Role = "more_info"
)

// Roles lists every role in classification priority order.
var Roles = []Role{RoleAccept, RoleReject, RoleManage, RoleClose, RoleMoreInfo}

// SelectorKey returns the Rule selectors key for buttons of this role
// ("acceptButton", "moreInfoButton", ...).
func (r Role) SelectorKey() string {
	switch r {
	case RoleMoreInfo:
		return "moreInfoButton"
	default:
		return string(r) + "Button"
	}
}

// Shape is the structural category of a banner.
type Shape string

const (
	ShapeModal     Shape = "modal"
	ShapeTopBar    Shape = "top_bar"
	ShapeBottomBar Shape = "bottom_bar"
	ShapeSidebar   Shape = "sidebar"
	ShapeOverlay   Shape = "overlay"
)

// Button is one classified control inside a banner.
type Button struct {
	Text       string            `json:"text"`
	Role       Role              `json:"role"`
	Selector   string            `json:"selector"`
	Visible    bool              `json:"visible"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

// Banner is an accepted detection. Treat it as immutable; the With* methods
// return modified copies.
type Banner struct {
	Site              string            `json:"site"`
	Shape             Shape             `json:"shape"`
	ContainerSelector string            `json:"container_selector"`
	Buttons           []Button          `json:"buttons"`
	OverlaySelectors  []string          `json:"overlay_selectors,omitempty"`
	RawFragment       string            `json:"raw_fragment,omitempty"`
	Confidence        float64           `json:"confidence"`
	ExtraSelectors    map[string]string `json:"extra_selectors,omitempty"`
}

// Roles returns the distinct button roles present, in priority order.
func (b *Banner) Roles() []Role {
	var out []Role
	for _, r := range Roles {
		if b.HasRole(r) {
			out = append(out, r)
		}
	}
	return out
}

// HasRole reports whether any button has role r.
func (b *Banner) HasRole(r Role) bool {
	for _, btn := range b.Buttons {
		if btn.Role == r {
			return true
		}
	}
	return false
}

// CloseOnly reports whether the banner has buttons and all of them close it.
func (b *Banner) CloseOnly() bool {
	if len(b.Buttons) == 0 {
		return false
	}
	for _, btn := range b.Buttons {
		if btn.Role != RoleClose {
			return false
		}
	}
	return true
}

// VisibleButtons counts buttons not hidden by style, class or aria-hidden.
func (b *Banner) VisibleButtons() int {
	n := 0
	for _, btn := range b.Buttons {
		if btn.Visible {
			n++
		}
	}
	return n
}

// WithExtraSelectors returns a copy of b with extra merged over its
// ExtraSelectors. Existing keys are kept.
func (b *Banner) WithExtraSelectors(extra map[string]string) *Banner {
	c := *b
	c.ExtraSelectors = maps.Clone(b.ExtraSelectors)
	if c.ExtraSelectors == nil {
		c.ExtraSelectors = make(map[string]string, len(extra))
	}
	for k, v := range extra {
		if _, ok := c.ExtraSelectors[k]; !ok && v != "" {
			c.ExtraSelectors[k] = v
		}
	}
	c.Buttons = append([]Button(nil), b.Buttons...)
	c.OverlaySelectors = append([]string(nil), b.OverlaySelectors...)
	return &c
}
