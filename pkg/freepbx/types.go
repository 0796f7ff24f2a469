package freepbx

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
)

// Verb is an HTTP method accepted by the REST transport.
type Verb string

// Supported verbs.
const (
	VerbGet    Verb = http.MethodGet
	VerbPost   Verb = http.MethodPost
	VerbPut    Verb = http.MethodPut
	VerbPatch  Verb = http.MethodPatch
	VerbDelete Verb = http.MethodDelete
)

// ParseVerb parses a case-insensitive HTTP method name. An empty name
// yields VerbGet.
func ParseVerb(method string) (Verb, error) {
	switch Verb(strings.ToUpper(strings.TrimSpace(method))) {
	case "", VerbGet:
		return VerbGet, nil
	case VerbPost:
		return VerbPost, nil
	case VerbPut:
		return VerbPut, nil
	case VerbPatch:
		return VerbPatch, nil
	case VerbDelete:
		return VerbDelete, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedVerb, method)
	}
}

// Extension represents a telephone line registered on the PBX.
type Extension struct {
	ExtensionID string         `json:"extensionId"    yaml:"extension_id"`
	Tech        string         `json:"tech"           yaml:"tech"`
	User        *ExtensionUser `json:"user,omitempty" yaml:"user,omitempty"`
}

// ExtensionUser holds the user settings attached to an extension.
type ExtensionUser struct {
	Name                   string     `json:"name"                   yaml:"name"`
	Voicemail              string     `json:"voicemail"              yaml:"voicemail"`
	RingTimer              FlexString `json:"ringtimer"              yaml:"ring_timer"`
	NoAnswer               string     `json:"noanswer"               yaml:"no_answer"`
	Recording              string     `json:"recording"              yaml:"recording"`
	OutboundCID            string     `json:"outboundCid"            yaml:"outbound_cid"`
	SIPName                string     `json:"sipname"                yaml:"sip_name"`
	NoAnswerCID            string     `json:"noanswerCid"            yaml:"no_answer_cid"`
	BusyCID                string     `json:"busyCid"                yaml:"busy_cid"`
	ChanUnavailCID         string     `json:"chanunavailCid"         yaml:"chan_unavail_cid"`
	NoAnswerDestination    string     `json:"noanswerDestination"    yaml:"no_answer_destination"`
	BusyDestination        string     `json:"busyDestination"        yaml:"busy_destination"`
	ChanUnavailDestination string     `json:"chanunavailDestination" yaml:"chan_unavail_destination"`
	MOHClass               string     `json:"mohclass"               yaml:"moh_class"`
	CallWaiting            string     `json:"callwaiting"            yaml:"call_waiting"`
}

// RingGroup represents a set of extensions that ring together.
type RingGroup struct {
	ID            string     `json:"id"            yaml:"id"`
	GroupNumber   FlexInt    `json:"groupNumber"   yaml:"group_number"`
	Description   string     `json:"description"   yaml:"description"`
	GroupList     string     `json:"groupList"     yaml:"group_list"`
	GroupTime     FlexString `json:"groupTime"     yaml:"group_time"`
	Strategy      string     `json:"strategy"      yaml:"strategy"`
	NeedConf      FlexString `json:"needConf"      yaml:"need_conf"`
	CallRecording string     `json:"callRecording" yaml:"call_recording"`
}

// CDR represents one call detail record.
type CDR struct {
	ID          string  `json:"id"          yaml:"id"`
	CallDate    string  `json:"calldate"    yaml:"call_date"`
	Src         string  `json:"src"         yaml:"src"`
	Dst         string  `json:"dst"         yaml:"dst"`
	Duration    FlexInt `json:"duration"    yaml:"duration"`
	BillSec     FlexInt `json:"billsec"     yaml:"bill_sec"`
	Disposition string  `json:"disposition" yaml:"disposition"`
	UniqueID    string  `json:"uniqueid"    yaml:"unique_id"`
}

// CallFlow represents a day/night call flow toggle.
type CallFlow struct {
	Ext  string `json:"ext"  yaml:"ext"`
	Dest string `json:"dest" yaml:"dest"`
}

// Queue represents a call queue.
type Queue struct {
	Extension string `json:"extension" yaml:"extension"`
	Name      string `json:"name"      yaml:"name"`
	Strategy  string `json:"strategy"  yaml:"strategy"`
}

// FlexString decodes a JSON string, number or boolean into its string form.
// FreePBX modules are not consistent about the JSON type of some settings.
type FlexString string

// UnmarshalJSON implements json.Unmarshaler.
func (s *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*s = ""

		return nil
	}

	if len(data) > 0 && data[0] == '"' {
		var str string

		err := json.Unmarshal(data, &str)
		if err != nil {
			return fmt.Errorf("decoding string: %w", err)
		}

		*s = FlexString(str)

		return nil
	}

	var scalar interface{}

	err := json.Unmarshal(data, &scalar)
	if err != nil {
		return fmt.Errorf("decoding scalar: %w", err)
	}

	switch v := scalar.(type) {
	case float64, bool:
		*s = FlexString(fmt.Sprint(v))
	default:
		return fmt.Errorf("%w: %s is not a scalar", ErrUnexpectedResponse, string(data))
	}

	return nil
}

// FlexInt decodes a JSON number or a numeric string into an int. Null and
// the empty string decode to zero.
type FlexInt int

// UnmarshalJSON implements json.Unmarshaler.
func (n *FlexInt) UnmarshalJSON(data []byte) error {
	var s FlexString

	err := s.UnmarshalJSON(data)
	if err != nil {
		return err
	}

	raw := strings.TrimSpace(string(s))
	if raw == "" {
		*n = 0

		return nil
	}

	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fmt.Errorf("%w: %q is not a number", ErrUnexpectedResponse, raw)
	}

	*n = FlexInt(value)

	return nil
}
