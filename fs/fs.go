// Package appfs embeds the files shipped with the binaries.
package appfs

import "embed"

//go:embed migrations/*.sql templates
var FS embed.FS

// EmailTemplatesDir is the directory of the e-mail templates within FS.
const EmailTemplatesDir = "templates/email"
