package artifacts

import _ "embed"

//go:embed defaults/config.yaml
var ProjectConfig []byte
