package mime

import "testing"

func TestTypeByFilenameKnownExtensions(t *testing.T) {
	cases := map[string]string{
		"index.html":  "text/html",
		"INDEX.HTML":  "text/html",
		"style.css":   "text/css",
		"photo.jpeg":  "image/jpeg",
		"archive.tar": "application/x-tar",
		"doc.pdf":     "application/pdf",
	}
	for name, want := range cases {
		if got := TypeByFilename(name); got != want {
			t.Errorf("TypeByFilename(%q) = %q, want %q", name, got, want)
		}
	}
}

func TestTypeByFilenameUnknownExtension(t *testing.T) {
	if got := TypeByFilename("file.unknownext"); got != DefaultType {
		t.Errorf("got %q, want %q", got, DefaultType)
	}
}

func TestTypeByFilenameNoExtension(t *testing.T) {
	if got := TypeByFilename("Makefile"); got != DefaultType {
		t.Errorf("got %q, want %q", got, DefaultType)
	}
}

func TestTypeByFilenameUsesFinalExtension(t *testing.T) {
	if got := TypeByFilename("archive.tar.gz"); got != DefaultType {
		t.Errorf("got %q, want %q (gz is not in the table)", got, DefaultType)
	}
}

func TestTypeByFilenameRTFMapsToTextRTF(t *testing.T) {
	if got := TypeByFilename("letter.rtf"); got != "text/rtf" {
		t.Errorf("got %q, want text/rtf", got)
	}
}
