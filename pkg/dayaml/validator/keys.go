package validator

import (
	"sort"
	"strings"
)

// recognizedKeys lists every key the interview engine accepts at the top
// level of a block, including the ones only tables and features use.
var recognizedKeys = []string{
	"features",
	"scan for variables",
	"only sets",
	"question",
	"code",
	"event",
	"translations",
	"default language",
	"on change",
	"sections",
	"progressive",
	"auto open",
	"section",
	"machine learning storage",
	"language",
	"prevent going back",
	"back button",
	"usedefs",
	"continue button label",
	"continue button color",
	"resume button label",
	"resume button color",
	"back button label",
	"corner back button label",
	"skip undefined",
	"list collect",
	"mandatory",
	"attachment options",
	"script",
	"css",
	"initial",
	"default role",
	"command",
	"objects from file",
	"use objects",
	"data",
	"variable name",
	"data from code",
	"objects",
	"id",
	"ga id",
	"segment id",
	"segment",
	"supersedes",
	"order",
	"image sets",
	"images",
	"def",
	"mako",
	"interview help",
	"default screen parts",
	"default validation messages",
	"generic object",
	"generic list object",
	"comment",
	"metadata",
	"modules",
	"reset",
	"imports",
	"terms",
	"auto terms",
	"role",
	"include",
	"action buttons",
	"if",
	"validation code",
	"require",
	"orelse",
	"attachment",
	"attachments",
	"attachment code",
	"attachments code",
	"allow emailing",
	"allow downloading",
	"email subject",
	"email body",
	"email template",
	"email address default",
	"progress",
	"zip filename",
	"action",
	"backgroundresponse",
	"response",
	"binaryresponse",
	"all_variables",
	"response filename",
	"content type",
	"redirect url",
	"null response",
	"sleep",
	"include_internal",
	"css class",
	"table css class",
	"response code",
	"subquestion",
	"reload",
	"help",
	"audio",
	"video",
	"decoration",
	"signature",
	"under",
	"pre",
	"post",
	"right",
	"check in",
	"yesno",
	"noyes",
	"yesnomaybe",
	"noyesmaybe",
	"sets",
	"choices",
	"buttons",
	"dropdown",
	"combobox",
	"field",
	"shuffle",
	"review",
	"need",
	"depends on",
	"target",
	"table",
	"rows",
	"columns",
	"require gathered",
	"allow reordering",
	"edit",
	"delete buttons",
	"confirm",
	"read only",
	"edit header",
	"show if empty",
	"template",
	"content file",
	"content",
	"subject",
	"reconsider",
	"undefine",
	"continue button field",
	"fields",
	"indent",
	"url",
	"default",
	"datatype",
	"extras",
	"allowed to set",
	"show incomplete",
	"not available label",
	"required",
	"always include editable files",
	"question metadata",
	"include attachment notice",
	"include download tab",
	"describe file types",
	"manual attachment list",
	"breadcrumb",
	"tabular",
	"hide continue button",
	"disable continue button",
	"pen color",
	"gathered",
	"show if",
	"hide if",
	"js show if",
	"js hide if",
	"enable if",
	"disable if",
	"js enable if",
	"js disable if",
	"disable others",
	"filter",
	"sort key",
	"sort reverse",
}

var knownKeys = func() map[string]bool {
	m := make(map[string]bool, len(recognizedKeys))
	for _, k := range recognizedKeys {
		m[k] = true
	}
	return m
}()

// IsKnownKey reports whether key is a recognized block key. Comparison is
// case-insensitive.
func IsKnownKey(key string) bool {
	return knownKeys[strings.ToLower(key)]
}

// KnownKeys returns the recognized keys in sorted order.
func KnownKeys() []string {
	keys := make([]string, 0, len(knownKeys))
	for k := range knownKeys {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
