package mapper

import (
	"strings"

	"github.com/hazyhaar/cmpmap/consent"
)

const acceptRejectBanner = `<div id="cookie-banner"><button id="accept-btn">Accept All</button><button id="reject-btn">Reject All</button></div>`

const closeOnlyBanner = `<div id="cookie-notice" class="cookie-notice" role="dialog" aria-label="Cookie notice" data-consent="notice">` +
	`<p>This website uses cookies and similar tracking technologies. We rely on consent for analytics, ` +
	`advertising and personalization, as described in our privacy notice and GDPR statement. Some cookies ` +
	`are strictly needed for the site to work, while others help us understand how visitors use our pages ` +
	`so we can improve them over time. You can change your mind at any point from the link in the footer ` +
	`of every page, and nothing is shared with partners before you have made a choice.</p>` +
	`<button class="close" aria-label="Close">×</button></div>`

const newsletterBox = `<div class="news"><p>Welcome to our store. Fresh arrivals every week.</p><button>Buy now</button></div>`

const uuidBanner = `<div id="123e4567-e89b-12d3-a456-426614174000" class="cookie-banner" data-consent="banner">` +
	`<p>We use cookies for analytics and advertising. Read our privacy notice.</p>` +
	`<button id="accept-btn">Accept All</button><button id="reject-btn">Reject All</button></div>`

const bottomBar = `<div class="cookie-bar" data-consent="bar" style="position: fixed; bottom: 0">` +
	`<p>We use cookies for analytics and advertising. See our privacy notice.</p>` +
	`<button data-action="accept">Accept</button><button data-action="settings">Cookie settings</button></div>`

const privacyParagraph = `<div class="privacy-policy"><p>This privacy policy explains how we use cookies and personal data for analytics.</p></div>`

func pageHTML(parts ...string) string {
	return `<!DOCTYPE html><html><head><title>Shop</title></head><body><main><h1>Shop</h1></main>` +
		strings.Join(parts, "") + `</body></html>`
}

func snapshot(parts ...string) *consent.Snapshot {
	return &consent.Snapshot{URL: "https://www.example.com/", Markup: pageHTML(parts...)}
}
