package imageurl

import (
	"reflect"
	"testing"
)

func TestScan_DocumentOrderAcrossSyntaxes(t *testing.T) {
	text := `# Mug
![front](https://cdn.x/front.jpg "Front")
<img src="/img/side.png" alt="side">
<img data-src='//cdn.x/lazy.webp' src="data:image/gif;base64,R0lGOD">
<img srcset="/img/a-320.jpg 320w, /img/a-640.jpg 640w">
<img src="/img/placeholder.svg">`
	got := Scan(text)
	want := []string{
		"https://cdn.x/front.jpg",
		"/img/side.png",
		"//cdn.x/lazy.webp",
		"/img/a-320.jpg",
		"/img/a-640.jpg",
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Scan = %v, want %v", got, want)
	}
}
