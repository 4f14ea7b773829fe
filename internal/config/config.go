package config

import (
	"io/fs"
	"time"
)

// -----------------------------------------------------------------------------
// Build Information
// -----------------------------------------------------------------------------

// Build variables are injected via -ldflags.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// UserAgent identifies the HTTP client.
var UserAgent = "Go-Birthday-Reminder/" + Version

// -----------------------------------------------------------------------------
// Application Constants
// -----------------------------------------------------------------------------

const (
	AppName           = "Go Birthday Reminder"
	KeyringService    = "com.github.tartampluch.go-birthday-reminder"
	LocalhostBindAddr = "127.0.0.1"
	LogFileName       = "birthday_reminder.log"
	ConfigFileName    = "config.yml"
	EnvPrefix         = "BIRTHDAY"
	PreviewDir        = "previews"
)

// -----------------------------------------------------------------------------
// Exit Codes
// -----------------------------------------------------------------------------

const (
	ExitCodeSuccess = 0
	ExitCodeError   = 1
)

// -----------------------------------------------------------------------------
// System & File Permissions
// -----------------------------------------------------------------------------

const (
	// FilePermUserRW represents -rw------- (Read/Write for owner only).
	FilePermUserRW fs.FileMode = 0600

	// FilePermPublic represents -rw-r--r--, used for exported calendars and previews.
	FilePermPublic fs.FileMode = 0644

	// DirPermUserRWX represents drwx------ (Read/Write/Exec for owner only).
	DirPermUserRWX fs.FileMode = 0700

	// ChannelBufferSize defines the standard buffer size for internal signaling channels.
	ChannelBufferSize = 1
)

// -----------------------------------------------------------------------------
// CLI Commands, Flags & Descriptions
// -----------------------------------------------------------------------------

const (
	FlagConfig  = "config"
	FlagDebug   = "debug"
	FlagServe   = "serve"
	FlagPort    = "port"
	FlagNoOpen  = "no-open"
	FlagDays    = "days"
	FlagOut     = "out"
	FlagToday   = "today"
	FlagDryRun  = "dry-run"
	FlagTmpl    = "template"
	FlagLang    = "lang"
	FlagDescCfg = "Path to the YAML configuration file"
	FlagDescDbg = "Enable debug logging"
	FlagDescLng = "Override notification.language"
	FlagDescSrv = "Serve the preview over HTTP instead of writing a file"
	FlagDescPrt = "Port of the preview server"
	FlagDescNoO = "Do not open the browser"
	FlagDescTpl = "Template file to preview"
	FlagDescDys = "Number of days to export"
	FlagDescOut = "Output file, - for stdout"
	FlagDescTdy = "Pretend today is this date (YYYY-MM-DD)"
	FlagDescDry = "Check birthdays without sending anything"

	CmdRootUse     = "birthday-reminder"
	CmdRootShort   = "Solar and lunar birthday reminders by email and ServerChan"
	CmdRunUse      = "run"
	CmdRunShort    = "Check today's birthdays and send reminders"
	CmdPreviewUse  = "preview"
	CmdPreviewShrt = "Render the email template with sample data"
	CmdValidUse    = "validate"
	CmdValidShort  = "Check the configuration file"
	CmdInfoUse     = "info"
	CmdInfoShort   = "Show channels and upcoming birthdays"
	CmdExportUse   = "export"
	CmdExportShort = "Write upcoming birthdays as an iCalendar file"
	CmdSecretUse   = "secret"
	CmdSecretShort = "Manage passwords stored in the OS keyring"
	CmdSetUse      = "set <username>"
	CmdSetShort    = "Store a password read from stdin"
	CmdVersionUse  = "version"
	CmdVersionShrt = "Print version information"

	StdoutPath = "-"

	MsgVersionOutput = "%s version %s (commit %s, built %s, %s/%s)\n"
)

// -----------------------------------------------------------------------------
// Notification Channels
// -----------------------------------------------------------------------------

const (
	ChannelEmail      = "email"
	ChannelServerChan = "serverchan"

	// ChannelSeparator splits the notification.type list.
	ChannelSeparator = ","
)

// -----------------------------------------------------------------------------
// Default Values & Business Logic
// -----------------------------------------------------------------------------

const (
	DefaultChannel         = ChannelEmail
	DefaultLanguage        = "zh"
	DefaultTemplateFile    = "birthday.html"
	DefaultTemplatesDir    = "templates"
	DefaultLayout          = "layout.html"
	DefaultSMTPPort        = 465
	DefaultServerChanURL   = "https://sctapi.ftqq.com"
	DefaultReminderDays    = 0
	DefaultRetryAttempts   = 3
	DefaultRetryDelay      = 1 * time.Second
	DefaultRetryMultiplier = 2.0
	DefaultExportDays      = 365
	DefaultPreviewPort     = "18081"
	DefaultLogLevel        = "info"
	DefaultLogFormat       = "console"
	DefaultLeapYear        = 2000 // Leap year fallback for dates like --02-29

	ContactsSourceLocal = "local"
	ContactsSourceWeb   = "web"

	UIDSalt = "go-birthday-reminder-v1-" // Salt for deterministic UID generation
)

// -----------------------------------------------------------------------------
// Standards: iCalendar & vCard
// -----------------------------------------------------------------------------

const (
	// iCal Properties
	ICalVersion   = "2.0"
	ICalProdid    = "-//Go Birthday Reminder//Engine//EN"
	ICalCalName   = "Birthday Reminders"
	ICalMethod    = "PUBLISH"
	ICalScale     = "GREGORIAN"
	ICalComponent = "VALARM"
	ICalAction    = "DISPLAY"
	ICalDomain    = "gobirthdayreminder"
	ICalFileName  = "birthday.ics"
	ICalTrigger   = "-PT9H" // 15:00 the day before an all-day event

	// iCal/vCard Fields
	PropUID         = "UID"
	PropSummary     = "SUMMARY"
	PropDTStart     = "DTSTART"
	PropDTStamp     = "DTSTAMP"
	PropAction      = "ACTION"
	PropDescription = "DESCRIPTION"
	PropTrigger     = "TRIGGER"
	PropVersion     = "VERSION"
	PropProdid      = "PRODID"
	PropXWRCalName  = "X-WR-CALNAME"
	PropCalScale    = "CALSCALE"
	PropMethod      = "METHOD"
	PropCategories  = "CATEGORIES"

	VCardBDAY  = "BDAY"
	VCardFN    = "FN"
	VCardN     = "N"
	VCardEmail = "EMAIL"
)

// -----------------------------------------------------------------------------
// Data Formats & Limits
// -----------------------------------------------------------------------------

const (
	// DateLayout is the only accepted format for birthdays in the YAML file.
	DateLayout = "2006-01-02"

	// Date layouts used for parsing vCard BDAY fields
	DateFormatFullDash  = "2006-01-02"
	DateFormatFullBasic = "20060102"
	DateFormatRFC3339   = time.RFC3339
	DateFormatFullT     = "2006-01-02T15:04:05Z"
	DateFormatNoYearD   = "--01-02"
	DateFormatNoYearB   = "--0102"

	// PreviewFileFormat expects the recipient name and a YYYYMMDD stamp.
	PreviewFileFormat = "preview_%s_%s.html"
	PreviewDateStamp  = "20060102"

	// UID Generation
	UIDHashLength   = 16
	FormatHashInput = "%s|%s|%s"
	FormatUID       = "%s-%s@%s"

	// FestivalSeparator joins multiple festival names.
	FestivalSeparator = "、"
	// LunarMonthSuffix is appended to the Chinese month name ("正" -> "正月").
	LunarMonthSuffix = "月"

	// Limits
	MinPort = 1
	MaxPort = 65535

	// File Extensions
	ExtMarkdown = ".md"
)

// -----------------------------------------------------------------------------
// Network & Timeouts
// -----------------------------------------------------------------------------

const (
	HTTPTimeout         = 30 * time.Second
	SMTPTimeout         = 30 * time.Second
	ShutdownTimeout     = 5 * time.Second
	ServerReadTimeout   = 10 * time.Second
	ServerWriteTimeout  = 30 * time.Second
	ServerIdleTimeout   = 60 * time.Second
	RetryAfterSeconds   = "10"
	AllowedMethods      = "GET, HEAD"
	MaxHTTPResponseSize = 16 * 1024 * 1024 // 16MB, a contacts export is text only
	MaxPushResponseSize = 64 * 1024
	SchemeHTTP          = "http"
	SchemeHTTPS         = "https"
	RouteRoot           = "/"
	RouteCalendar       = "/" + ICalFileName
	AddrSeparator       = ":"
	ServerChanPathFmt   = "%s/%s.send"
	FormTitle           = "title"
	FormDesp            = "desp"
)

// -----------------------------------------------------------------------------
// HTTP Headers & MIME Types
// -----------------------------------------------------------------------------

const (
	HeaderContentType     = "Content-Type"
	HeaderCacheControl    = "Cache-Control"
	HeaderETag            = "ETag"
	HeaderLastModified    = "Last-Modified"
	HeaderRetryAfter      = "Retry-After"
	HeaderAllow           = "Allow"
	HeaderXContentType    = "X-Content-Type-Options"
	HeaderUserAgent       = "User-Agent"
	HeaderIfNoneMatch     = "If-None-Match"
	HeaderIfModifiedSince = "If-Modified-Since"
	HeaderAccept          = "Accept"

	MimeTextCalendar    = "text/calendar; charset=utf-8"
	MimeICS             = "text/calendar"
	MimeTextHTML        = "text/html; charset=utf-8"
	MimeForm            = "application/x-www-form-urlencoded"
	MimeNoSniff         = "nosniff"
	MimeVCardAccept     = "text/vcard, text/directory;q=0.9, */*;q=0.5"
	CacheControlPrivate = "private, no-cache"

	// FormatETag expects a string argument.
	FormatETag = `"%s"`
)

// -----------------------------------------------------------------------------
// Error Messages (Technical/Logs)
// -----------------------------------------------------------------------------

const (
	ErrLocalPathEmpty  = "configuration error: local path is empty"
	ErrWebURLEmpty     = "configuration error: web URL is empty"
	ErrFetcherMissing  = "internal error: network fetcher is not initialized"
	ErrModeUnsupport   = "configuration error: unsupported contacts source"
	ErrServerStartup   = "server startup failed"
	ErrServerShutdown  = "server shutdown failed"
	ErrPortRequired    = "server port is required"
	ErrInvalidURL      = "invalid URL structure"
	ErrProtocol        = "unsupported protocol scheme (http/https only)"
	ErrVCardParse      = "failed to parse vCard stream"
	ErrICalEncode      = "failed to encode iCalendar data"
	ErrDateParse       = "unable to parse date"
	ErrLogFile         = "failed to open log file"
	ErrAppFailed       = "application failed unexpectedly"
	ErrWriteResp       = "failed to write response body"
	ErrLocalesAccess   = "failed to access embedded locales"
	ErrLocaleLoad      = "failed to load locale file"
	ErrAlmanac         = "calendrical conversion failed"
	ErrRender          = "failed to render notification"
	ErrSend            = "failed to send notification"
	ErrDeliveryFailed  = "one or more notifications failed"
	ErrKeyring         = "keyring lookup failed"
	ErrPreviewWrite    = "failed to write preview file"
	ErrBrowserOpen     = "failed to open browser"
	ErrContactsLoad    = "failed to load contacts"
	ErrInvalidToday    = "invalid --today date"
	ErrInvalidPort     = "invalid port"
	ErrSecretEmpty     = "empty password on stdin"
	ErrExportWrite     = "failed to write calendar"
)

// -----------------------------------------------------------------------------
// Log Messages
// -----------------------------------------------------------------------------

const (
	MsgAppStarting    = "Starting application"
	MsgAppStop        = "Application finished"
	MsgRunStarted     = "Starting birthday reminder check"
	MsgRunNoMatch     = "No birthdays to process today"
	MsgRunDone        = "Birthday reminders processed"
	MsgConfigLoading  = "Loading config"
	MsgConfigLoaded   = "Config loaded successfully"
	MsgConfigValid    = "Config validation passed"
	MsgConfigInvalid  = "Config validation failed"
	MsgCheckRecipient = "Checking birthday"
	MsgBdayFound      = "Birthday found in reminder window"
	MsgBdayInvalid    = "Invalid birthday format"
	MsgSenderCreated  = "Created sender"
	MsgSenderSkipped  = "Unknown notification type or missing config"
	MsgSendOK         = "Notification sent"
	MsgSendFailed     = "Notification failed"
	MsgRetrying       = "Attempt failed, retrying"
	MsgPushRejected   = "Push service rejected message"
	MsgEmailSent      = "Email sent"
	MsgPreviewSaved   = "Preview saved"
	MsgServerListen   = "HTTP server listening"
	MsgServerStop     = "Shutting down HTTP server..."
	MsgCacheUpdated   = "Served content updated"
	MsgLocaleSkip     = "Skipping non-locale file"
	MsgLocaleBadName  = "Skipping malformed locale filename"
	MsgLocaleLoaded   = "Locale loaded successfully"
	MsgLocaleFallback = "No locale for language, using default"
	MsgTransMissing   = "Missing translation key"
	MsgPassFromRing   = "Password loaded from keyring"
	MsgSkippedCard    = "Skipping malformed vCard"
	MsgSkippedDate    = "Skipping invalid date format"
	MsgContactsLoaded = "Contacts imported"
	MsgCalendarBuilt  = "Calendar generation successful"
	MsgLogWarning     = "Warning: %s at %s: %v\n"
	MsgCtxCancel      = "Context cancelled, shutting down"
	MsgDryRun         = "Dry run, nothing sent"
	MsgContactsFailed = "Contacts source unavailable, using configured recipients only"
	MsgFetchStart     = "Downloading vCard export"
	MsgFetchOK        = "vCard export received"
	MsgFetchRejected  = "Contacts server returned an error status"
)

// -----------------------------------------------------------------------------
// Translation Keys (I18n)
// -----------------------------------------------------------------------------

const (
	TKeySubject        = "subject"            // Requires Name, Age, Days
	TKeyGreeting       = "greeting"           // Requires Name
	TKeyTodayBoth      = "today_both"
	TKeyTodaySolar     = "today_solar"
	TKeyTodayLunar     = "today_lunar"
	TKeySoonBoth       = "soon_both"          // Requires Days
	TKeySoonSolar      = "soon_solar"         // Requires Days
	TKeySoonLunar      = "soon_lunar"         // Requires Days
	TKeyLblZodiac      = "lbl_zodiac"         // Requires Value
	TKeyLblConstell    = "lbl_constellation"  // Requires Value
	TKeyLblSolarTerm   = "lbl_solar_term"     // Requires Value
	TKeyLblLunarFest   = "lbl_lunar_festival" // Requires Value
	TKeyLblSolarFest   = "lbl_solar_festival" // Requires Value
	TKeyEvtSummary     = "event_summary"      // Requires Name
	TKeyEvtSummaryAge  = "event_summary_age"  // Requires Name, Age
	TKeyPreviewSaved   = "preview_saved"      // Requires Path
	TKeyPreviewServing = "preview_serving"    // Requires URL
	TKeyInfoChannels   = "info_channels"      // Requires Value
	TKeyInfoRecipients = "info_recipients"    // Requires Count
	TKeyInfoUpcoming   = "info_upcoming"      // Requires Name, Days
	TKeyInfoNone       = "info_none"          // Requires Name
	TKeyInfoLanguage   = "info_language"      // Requires Value, Supported
	TKeyValidateOK     = "validate_ok"
	TKeyExportWritten  = "export_written"     // Requires Path, Count
	TKeySecretStored   = "secret_stored"      // Requires User
)

// -----------------------------------------------------------------------------
// Fallbacks
// -----------------------------------------------------------------------------

const (
	FallbackName    = "Unknown"
	FallbackSummary = "Birthday: %s"

	// StubVCalendar is the minimal valid iCalendar object used when no events are found.
	StubVCalendar = "BEGIN:VCALENDAR\r\nVERSION:2.0\r\nPRODID:" + ICalProdid + "\r\nEND:VCALENDAR\r\n"

	HTTPMsgInitializing = "Preview initializing, please try again shortly."
	HTTPMsgMethodNotAll = "Method Not Allowed"
)

// -----------------------------------------------------------------------------
// Structured Logging Keys
// -----------------------------------------------------------------------------

const (
	LogKeyComponent = "component"
	LogKeyURL       = "url"
	LogKeyStatus    = "status_code"
	LogKeyFile      = "file"
	LogKeyLang      = "lang"
	LogKeyKey       = "key"
	LogKeyPort      = "port"
	LogKeyRoute     = "route"
	LogKeyName      = "name"
	LogKeyEmail     = "email"
	LogKeyChannel   = "channel"
	LogKeyChannels  = "channels"
	LogKeyValue     = "value"
	LogKeyCount     = "count"
	LogKeyMatches   = "matches"
	LogKeyFailures  = "failures"
	LogKeyDaysUntil = "days_until"
	LogKeyAge       = "age"
	LogKeySolar     = "solar_match"
	LogKeyLunar     = "lunar_match"
	LogKeyAttempt   = "attempt"
	LogKeyMax       = "max_attempts"
	LogKeyDelay     = "retry_in"
	LogKeyRunID     = "run_id"
	LogKeyUser      = "user"
	LogKeySizeBytes = "size_bytes"
	LogKeyETag      = "etag"
	LogKeyDuration  = "duration_ms"
	LogKeyResponse  = "response"
	LogKeyTotal     = "total_cards"
	LogKeyFound     = "birthdays_found"

	// Startup Info Keys
	LogKeyApp     = "app"
	LogKeyVersion = "version"
	LogKeyGoVer   = "go_version"
	LogKeyOS      = "os"
	LogKeyArch    = "arch"
	LogKeyPID     = "pid"
)

// -----------------------------------------------------------------------------
// Log Components
// -----------------------------------------------------------------------------

const (
	CompMain     = "main"
	CompConfig   = "config"
	CompEngine   = "engine"
	CompContacts = "contacts"
	CompFetcher  = "fetcher"
	CompNotify   = "notify"
	CompEmail    = "email"
	CompPush     = "serverchan"
	CompServer   = "server"
	CompPreview  = "preview"
	CompI18n     = "i18n"
)
