package app

import (
	"github.com/specialistvlad/planrunner/internal/block"
	"github.com/specialistvlad/planrunner/internal/control"
	"github.com/specialistvlad/planrunner/modules/auth"
	"github.com/specialistvlad/planrunner/modules/common_util"
	"github.com/specialistvlad/planrunner/modules/crypto"
	"github.com/specialistvlad/planrunner/modules/database"
	"github.com/specialistvlad/planrunner/modules/datetime"
	"github.com/specialistvlad/planrunner/modules/env_vars"
	"github.com/specialistvlad/planrunner/modules/http_request"
	"github.com/specialistvlad/planrunner/modules/primitive"
	"github.com/specialistvlad/planrunner/modules/print"
	"github.com/specialistvlad/planrunner/modules/request"
	"github.com/specialistvlad/planrunner/modules/response"
	"github.com/specialistvlad/planrunner/modules/s3"
	"github.com/specialistvlad/planrunner/modules/socketio"
	"github.com/specialistvlad/planrunner/modules/variable"
)

// coreModules is the definitive list of all modules that are compiled into
// the planrunner binary.
var coreModules = []block.Module{
	&control.Module{},
	&primitive.Module{},
	&common_util.Module{},
	&datetime.Module{},
	&crypto.Module{},
	&variable.Module{},
	&request.Module{},
	&response.Module{},
	&env_vars.Module{},
	&print.Module{},
	&database.Module{},
	&http_request.Module{},
	&s3.Module{},
	&socketio.Module{},
	&auth.Module{},
}

// CoreModules returns a copy of the built-in module list.
func CoreModules() []block.Module {
	return append([]block.Module(nil), coreModules...)
}
