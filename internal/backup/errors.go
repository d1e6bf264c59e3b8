package backup

import (
	"fmt"

	"github.com/feedmill/feedmill/internal/shared"
)

func errUnsupportedVersion(v int) error {
	return shared.Invalid(fmt.Sprintf("unsupported backup version %d", v))
}

func errInvalid(format string, args ...any) error {
	return shared.Invalid("invalid backup: " + fmt.Sprintf(format, args...))
}
