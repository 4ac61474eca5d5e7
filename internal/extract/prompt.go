package extract

import (
	"fmt"

	"github.com/hyperifyio/goproduct/internal/product"
)

const standardSystemPrompt = `You extract product data from an e-commerce product page.
Return a single JSON object with exactly these keys:
- "title": the commercial product name as sold. Never an interface label such as "Size guide", "Add to cart", "Share", "Reviews" or a breadcrumb.
- "price": the current selling price as a string using a dot as decimal separator, two decimals, no currency symbol, no thousands separator. Example: "1299.00". Use "" when no price is shown.
- "description": the product description as HTML using <p>, <ul>, <li>, <h3> and <strong>. Transcribe the page's own description; do not invent facts.
- "mainImages": absolute URLs of the product gallery images (the photos of the product itself), in page order.
- "descriptionImages": URLs of images embedded in the description body, excluding gallery images.
Do not include logos, icons, payment badges, tracking pixels or images of other products.
Respond with JSON only.`

const proCopySystemPrompt = `You write persuasive e-commerce copy from a product page.
Return a single JSON object with exactly these keys:
- "title": the commercial product name as sold. Never an interface label such as "Size guide", "Add to cart" or "Share".
- "price": the current selling price as a string using a dot as decimal separator, two decimals, no currency symbol, no thousands separator. Use "" when no price is shown.
- "description": original marketing copy as HTML following Attention, Interest, Desire, Action: an engaging opening <p>, a <ul> of concrete benefits, a short <p> that builds desire and a closing <p> that invites the reader to learn more.
  The copy must not contain prices, currency amounts, discount codes, links, buttons, "add to cart", "buy now" or any checkout wording.
- "mainImages": absolute URLs of the product gallery images, in page order.
- "descriptionImages": URLs of images embedded in the description body, excluding gallery images.
Respond with JSON only.`

// SystemPrompt returns the instruction for the given mode.
func SystemPrompt(mode product.Mode) string {
	if mode == product.ModeProCopy {
		return proCopySystemPrompt
	}
	return standardSystemPrompt
}

// userPreamble is the fixed part of the user message; content is appended.
func userPreamble(pageURL string) string {
	return fmt.Sprintf("Product page URL: %s\n\nPage content:\n", pageURL)
}

func temperatureFor(mode product.Mode) float32 {
	if mode == product.ModeProCopy {
		return 0.7
	}
	return 0
}
