package http

import "encoding/json"

// FeatureList acepta tanto un string como una lista de strings en JSON; un
// string solo se normaliza a lista de un elemento.
type FeatureList []string

// UnmarshalJSON implementa la normalización string → [string].
func (f *FeatureList) UnmarshalJSON(data []byte) error {
	var one string
	if err := json.Unmarshal(data, &one); err == nil {
		*f = FeatureList{one}
		return nil
	}
	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return err
	}
	*f = FeatureList(many)
	return nil
}

type registerRequest struct {
	DeviceID   string      `json:"deviceId"`
	Features   FeatureList `json:"features"`
	Endpoint   string      `json:"endpoint"`
	Key        string      `json:"key"`
	AuthSecret string      `json:"authSecret"`
}

type registerResponse struct {
	DeviceID string   `json:"deviceId"`
	Features []string `json:"features"`
}

type unregisterRequest struct {
	DeviceID string `json:"deviceId"`
	// nil = deregistración completa; lista = quitar solo esas features.
	Features *FeatureList `json:"features"`
}

type updateDeviceRequest struct {
	DeviceID   string `json:"deviceId"`
	Endpoint   string `json:"endpoint"`
	Key        string `json:"key"`
	AuthSecret string `json:"authSecret"`
}

type featuresResponse struct {
	DeviceID string   `json:"deviceId"`
	Features []string `json:"features"`
}

type ingestResponse struct {
	Received int `json:"received"`
	Started  int `json:"started"`
	Updated  int `json:"updated"`
}
