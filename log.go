package folio

import "github.com/tliron/commonlog"

var log = commonlog.GetLogger("folio")
