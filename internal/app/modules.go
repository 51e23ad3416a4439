package app

import "github.com/specialistvlad/treeplug/internal/model"

type coreModule struct {
	id         string
	kind       model.Kind
	repeatable bool
	source     string
}

// coreModules is the definitive list of all modules that are compiled into
// the treeplug binary. They are installed before the modules path is loaded,
// so their ids are reserved.
var coreModules = []coreModule{
	{
		id:   "identity",
		kind: model.KindTransformer,
		source: `module {
  name = "Identity"
  help = "Returns the tree unchanged."
}

function "transform" {
  params = [tree]
  result = tree
}
`,
	},
	{
		id:         "passthrough",
		kind:       model.KindFurtherTransformation,
		repeatable: true,
		source: `module {
  name = "Pass through"
  help = "Forwards its input to the next step. Useful as a pipeline separator."
}

function "further_transform" {
  params = [input]
  result = input
}
`,
	},
}
