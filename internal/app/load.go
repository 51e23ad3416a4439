package app

import (
	"fmt"
	"os"

	"github.com/specialistvlad/treeplug/internal/ctxlog"
	"github.com/specialistvlad/treeplug/internal/loader"
)

// LoadModules compiles and installs the module files under the modules path.
func (a *App) LoadModules() (*loader.Report, error) {
	logger := ctxlog.FromContext(a.ctx)
	logger.Debug("Loading modules...", "modules_path", a.config.ModulesPath)

	if _, err := os.Stat(a.config.ModulesPath); err != nil {
		return nil, fmt.Errorf("modules path: %w", err)
	}
	return a.loader.LoadAll(a.ctx)
}
