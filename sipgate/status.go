package sipgate

// StatusOK is the status code of a successful method call.
const StatusOK = 200

// statusMessages describes the status codes of the sipgate API 1.06.
var statusMessages = map[int]string{
	200: "Method success",
	400: "Method not supported",
	401: "Request denied (no reason specified)",
	402: "Internal error",
	403: "Invalid arguments",
	404: "Resources exceeded (this MUST not be used to indicate parameters in error)",
	405: "Invalid parameter name",
	406: "Invalid parameter type",
	407: "Invalid parameter value",
	408: "Attempt to set a non-writable parameter",
	409: "Notification request rejected.",
	410: "Parameter exceeds maximum size.",
	411: "Missing parameter.",
	412: "Too many requests.",
	500: "Date out of range.",
	501: "Uri does not belong to user.",
	502: "Unknown type of service.",
	503: "Selected payment method failed.",
	504: "Selected currency not supported.",
	505: "Amount exceeds limit.",
	506: "Malformed SIP URI.",
	507: "URI not in list.",
	508: "Format is not valid E.164.",
	509: "Unknown status.",
	510: "Unknown ID.",
	511: "Invalid timevalue.",
	512: "Referenced session not found.",
	513: "Only single default per TOS allowed.",
	514: "Malformed VCARD format.",
	515: "Malformed PID format.",
	516: "Presence information not available.",
	517: "Invalid label name.",
	518: "Label not assigned.",
	519: "Label doesn't exist.",
	520: "Parameter includes invalid characters.",
	521: "Bad password. (Rejected due to security concerns.)",
	522: "Malformed timezone format.",
	523: "Delay exceeds limit.",
	524: "Requested VPN type not available.",
	525: "Requested TOS not available.",
	526: "Unified messaging not available.",
	527: "URI not available for registration.",
}

// StatusMessage returns the description of a status code, or "unknown".
func StatusMessage(code int) string {
	if msg, ok := statusMessages[code]; ok {
		return msg
	}
	return "unknown"
}

// TypeOfService maps the session types of service to the unit they are
// accounted in.
var TypeOfService = map[string]string{
	"fax":   "pages",
	"text":  "characters",
	"video": "seconds",
	"voice": "seconds",
}
