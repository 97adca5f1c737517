// Package mime provides the server's frozen extension-to-content-type
// table (C7), transcribed from original_source/http-daemon.cpp's
// content_types map rather than built on stdlib mime.TypeByExtension: the
// specification calls for this exact, fixed table, not whatever a given
// OS's /etc/mime.types happens to contain.
package mime

import "strings"

// DefaultType is returned when a filename has no extension or the
// extension is not in the table.
const DefaultType = "application/octet-stream"

var table = map[string]string{
	"ai":      "application/postscript",
	"aif":     "audio/x-aiff",
	"aifc":    "audio/x-aiff",
	"aiff":    "audio/x-aiff",
	"asc":     "text/plain",
	"au":      "audio/basic",
	"avi":     "video/x-msvideo",
	"bcpio":   "application/x-bcpio",
	"bmp":     "image/bmp",
	"cdf":     "application/x-netcdf",
	"cpio":    "application/x-cpio",
	"cpt":     "application/mac-compactpro",
	"csh":     "application/x-csh",
	"css":     "text/css",
	"dcr":     "application/x-director",
	"dir":     "application/x-director",
	"doc":     "application/msword",
	"dvi":     "application/x-dvi",
	"dxr":     "application/x-director",
	"eps":     "application/postscript",
	"etx":     "text/x-setext",
	"gif":     "image/gif",
	"gtar":    "application/x-gtar",
	"hdf":     "application/x-hdf",
	"hqx":     "application/mac-binhex40",
	"htm":     "text/html",
	"html":    "text/html",
	"ice":     "x-conference/x-cooltalk",
	"ief":     "image/ief",
	"iges":    "model/iges",
	"igs":     "model/iges",
	"jpe":     "image/jpeg",
	"jpeg":    "image/jpeg",
	"jpg":     "image/jpeg",
	"js":      "application/x-javascript",
	"kar":     "audio/midi",
	"latex":   "application/x-latex",
	"man":     "application/x-troff-man",
	"me":      "application/x-troff-me",
	"mesh":    "model/mesh",
	"mid":     "audio/midi",
	"midi":    "audio/midi",
	"mov":     "video/quicktime",
	"movie":   "video/x-sgi-movie",
	"mp2":     "audio/mpeg",
	"mp3":     "audio/mpeg",
	"mpe":     "video/mpeg",
	"mpeg":    "video/mpeg",
	"mpg":     "video/mpeg",
	"mpga":    "audio/mpeg",
	"ms":      "application/x-troff-ms",
	"msh":     "model/mesh",
	"nc":      "application/x-netcdf",
	"oda":     "application/oda",
	"pbm":     "image/x-portable-bitmap",
	"pdb":     "chemical/x-pdb",
	"pdf":     "application/pdf",
	"pgm":     "image/x-portable-graymap",
	"pgn":     "application/x-chess-pgn",
	"png":     "image/png",
	"pnm":     "image/x-portable-anymap",
	"ppm":     "image/x-portable-pixmap",
	"ppt":     "application/vnd.ms-powerpoint",
	"ps":      "application/postscript",
	"qt":      "video/quicktime",
	"ra":      "audio/x-realaudio",
	"ram":     "audio/x-pn-realaudio",
	"ras":     "image/x-cmu-raster",
	"rgb":     "image/x-rgb",
	"rm":      "audio/x-pn-realaudio",
	"roff":    "application/x-troff",
	"rpm":     "audio/x-pn-realaudio-plugin",
	"rtf":     "text/rtf",
	"rtx":     "text/richtext",
	"sgm":     "text/sgml",
	"sgml":    "text/sgml",
	"sh":      "application/x-sh",
	"shar":    "application/x-shar",
	"silo":    "model/mesh",
	"sit":     "application/x-stuffit",
	"skd":     "application/x-koan",
	"skm":     "application/x-koan",
	"skp":     "application/x-koan",
	"skt":     "application/x-koan",
	"snd":     "audio/basic",
	"spl":     "application/x-futuresplash",
	"src":     "application/x-wais-source",
	"sv4cpio": "application/x-sv4cpio",
	"sv4crc":  "application/x-sv4crc",
	"swf":     "application/x-shockwave-flash",
	"t":       "application/x-troff",
	"tar":     "application/x-tar",
	"tcl":     "application/x-tcl",
	"tex":     "application/x-tex",
	"texi":    "application/x-texinfo",
	"texinfo": "application/x-texinfo",
	"tif":     "image/tiff",
	"tiff":    "image/tiff",
	"tr":      "application/x-troff",
	"tsv":     "text/tab-separated-values",
	"txt":     "text/plain",
	"ustar":   "application/x-ustar",
	"vcd":     "application/x-cdlink",
	"vrml":    "model/vrml",
	"wav":     "audio/x-wav",
	"wrl":     "model/vrml",
	"xbm":     "image/x-xbitmap",
	"xls":     "application/vnd.ms-excel",
	"xml":     "text/xml",
	"xpm":     "image/x-xpixmap",
	"xwd":     "image/x-xwindowdump",
	"xyz":     "chemical/x-pdb",
	"zip":     "application/zip",
	"hpp":     "text/plain",
	"cpp":     "text/plain",
}

// TypeByFilename looks up the content type for filename by its final
// extension, case-insensitively. Filenames with no extension, or an
// extension absent from the table, return DefaultType.
func TypeByFilename(filename string) string {
	dot := strings.LastIndexByte(filename, '.')
	if dot == -1 || dot == len(filename)-1 {
		return DefaultType
	}
	ext := strings.ToLower(filename[dot+1:])
	if t, ok := table[ext]; ok {
		return t
	}
	return DefaultType
}
