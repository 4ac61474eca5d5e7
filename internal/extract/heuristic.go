package extract

import (
	"net/url"

	"github.com/samber/lo"

	"github.com/hyperifyio/goproduct/internal/imageurl"
)

// DescriptionImageCutoff is how many content images, after removing main
// images, are assumed to belong to the gallery area. Anything found after
// them is treated as a description image. Best effort only.
const DescriptionImageCutoff = 4

// DescriptionImagesFromContent guesses description images from the image
// references in the original page content.
func DescriptionImagesFromContent(r *imageurl.Resolver, base *url.URL, content string, mainImages []string) []string {
	found := r.Dedupe(base, imageurl.Scan(content))
	rest := lo.Without(found, mainImages...)
	if len(rest) <= DescriptionImageCutoff {
		return nil
	}
	return rest[DescriptionImageCutoff:]
}
