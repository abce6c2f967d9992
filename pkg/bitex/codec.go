package bitex

import jsoniter "github.com/json-iterator/go"

// json is a drop-in replacement for encoding/json that honors
// json.Unmarshaler and json.Marshaler on the record types.
var json = jsoniter.ConfigCompatibleWithStandardLibrary
