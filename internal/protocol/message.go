package protocol

import "encoding/json"

// Message type and status detail markers used by the worker.
const (
	TypeStatus = "status"

	DetailBridgeReady  = "bridge_ready"
	DetailConnected    = "connected"
	DetailDisconnected = "disconnected"
	DetailPaired       = "paired"
)

// Request is a command sent to the worker.
//
// Wire format:
//
//	{"id":"msg_1","cmd":"set_mode","args":{"mode":"Idle"}}
type Request struct {
	ID   string         `json:"id"`
	Cmd  string         `json:"cmd"`
	Args map[string]any `json:"args"`
}

// Response is the worker's answer to a Request.
//
// Wire format for success:
//
//	{"id":"msg_1","ok":true,"data":{"Mode":"Idle"}}
//
// Wire format for failure:
//
//	{"id":"msg_1","ok":false,"error":"Not connected. Send 'connect' first."}
type Response struct {
	ID    string         `json:"id"`
	OK    bool           `json:"ok"`
	Data  map[string]any `json:"data,omitempty"`
	Error string         `json:"error,omitempty"`
}

// Status is an unsolicited connectivity announcement.
//
// Wire format:
//
//	{"type":"status","connected":false,"address":"","detail":"bridge_ready"}
type Status struct {
	Connected bool   `json:"connected"`
	Address   string `json:"address,omitempty"`
	Detail    string `json:"detail"`
}

// IsBridgeReady reports whether the status is the worker's readiness marker.
func (s Status) IsBridgeReady() bool {
	return s.Detail == DetailBridgeReady
}

// inbound is the union of every line the worker prints. Data stays raw so a
// response with a non-object payload still decodes and can be resolved.
type inbound struct {
	Type      string          `json:"type"`
	ID        string          `json:"id"`
	OK        bool            `json:"ok"`
	Data      json.RawMessage `json:"data"`
	Error     string          `json:"error"`
	Connected bool            `json:"connected"`
	Address   string          `json:"address"`
	Detail    string          `json:"detail"`
}

// object decodes Data as a JSON object. Absent and null data yield nil.
func (m *inbound) object() (map[string]any, error) {
	if len(m.Data) == 0 || string(m.Data) == "null" {
		return nil, nil
	}

	var data map[string]any
	if err := json.Unmarshal(m.Data, &data); err != nil {
		return nil, err
	}

	return data, nil
}
