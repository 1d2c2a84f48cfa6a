package modules

import (
	"github.com/iota-uz/etc-portal/modules/etc"
	"github.com/iota-uz/etc-portal/pkg/application"
)

var BuiltInModules = []application.Module{
	etc.NewModule(),
}

// Load registers exactly the modules passed in; callers opt into
// BuiltInModules explicitly.
func Load(app application.Application, mods ...application.Module) error {
	for _, module := range mods {
		if err := app.RegisterModule(module); err != nil {
			return err
		}
	}
	return nil
}
