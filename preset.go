package ssfpatch

import (
	"fmt"
	"sort"
	"strings"
)

// buildCraneProperty is the Establish_Task_Build_Crane entry of a map whose
// crane task was never established, as the game writes it.
const buildCraneProperty = `
"Establish_Task_Build_Crane":{
  "$type":"RequestEstablishSaveDesc",
  "isFinished":false,
  "issuedRewardCount":0,
  "routeSaveDesc":{
    "nodes":[{"x": 712.76129150390625,"y": 16.101736068725586,"z": -152.00442504882812}],
    "isNew":true,
    "isConnected":false
  },
  "trafficSaveDesc":{
    "regularConvoySaveDesc":{
      "isRunning":false,
      "isPioneer":false,
      "isStucked":false,
      "isMalfunction":false,
      "activeLifeControllerDescs":[],
      "preterminatedLifeControllerDescs":[],
      "timeToSendNext":481.0
    },
    "objectiveConvoySaveDesc":{
      "$type":"ObjectiveConvoySaveDesc",
      "isRunning":false,
      "isPioneer":false,
      "isStucked":false,
      "isMalfunction":false,
      "activeLifeControllerDescs":[],
      "preterminatedLifeControllerDescs":[],
      "timeToSendNext":0.0,
      "isValid":false,
      "lastAiIndex":-1,
      "passedTrucksCount":-1
    },
    "wasObjectiveAttached":true,
    "retrySaveDesc":{
      "borderIndex":2147483647,
      "stateBorderIndex":2147483647,
      "passedPoses":[],
      "passedRotations":[]
    },
    "stuckPos":null,
    "stuckReason":2,
    "stuckWayTrail":[]
  },
  "firstBuildingMalfunction":false,
  "secondBuildingMalfunction":false,
  "isProgressed":false,
  "isClientSave":false
}
`

// presets by CLI name
var presets = map[string]func() (PatchSpec, error){
	"build-crane": BuildCranePreset,
}

// BuildCranePreset resets the crane establish task in the request system.
func BuildCranePreset() (PatchSpec, error) {
	const prop = "Establish_Task_Build_Crane"
	value, err := PropertyValueFromSnippet(buildCraneProperty, prop)
	if err != nil {
		return PatchSpec{}, err
	}
	return PatchSpec{Selector: "request-system", Property: prop, Value: value}, nil
}

// Preset looks up a named preset.
func Preset(name string) (PatchSpec, error) {
	fn, ok := presets[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return PatchSpec{}, &ValidationError{Field: "preset", Msg: fmt.Sprintf("unknown preset %q (known: %s)",
			name, strings.Join(PresetNames(), ", "))}
	}
	return fn()
}

func PresetNames() []string {
	names := make([]string, 0, len(presets))
	for n := range presets {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// PropertyValueFromSnippet takes a `"name": value` member as it would appear
// inside an object and returns value as compact JSON.
func PropertyValueFromSnippet(snippet, name string) ([]byte, error) {
	wrapped := "{\n" + strings.TrimSpace(snippet) + "\n}"
	root, err := parseJSONDocument([]byte(wrapped))
	if err != nil {
		return nil, &ValidationError{Field: "snippet", Msg: "does not parse as an object member", Err: err}
	}
	for _, m := range root.members {
		if m.key == name {
			return m.value.compact(), nil
		}
	}
	return nil, &ValidationError{Field: "snippet", Msg: fmt.Sprintf("missing property %q", name)}
}
