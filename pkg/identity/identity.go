// Package identity implements the Claim 169 identity schema: a fixed,
// integer-keyed CBOR map of 23 demographic fields and 16 biometric
// array fields. It is the innermost layer of the credential pipeline —
// the bytes it produces are wrapped, unexamined, as the value of CWT
// claim key 169 (pkg/cwt).
package identity

import (
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/veritaslabs/claim169/pkg/cbor"
)

// Demographic field keys.
const (
	KeyID                 = 1
	KeyVersion            = 2
	KeyLanguage           = 3
	KeyFullName           = 4
	KeyFirstName          = 5
	KeyMiddleName         = 6
	KeyLastName           = 7
	KeyDateOfBirth        = 8
	KeyGender             = 9
	KeyAddress            = 10
	KeyEmail              = 11
	KeyPhone              = 12
	KeyNationality        = 13
	KeyMaritalStatus      = 14
	KeyGuardian           = 15
	KeyPhoto              = 16
	KeyPhotoFormat        = 17
	KeyBestQualityFingers = 18
	KeySecondaryFullName  = 19
	KeySecondaryLanguage  = 20
	KeyLocationCode       = 21
	KeyLegalStatus        = 22
	KeyCountryOfIssuance  = 23
)

// Biometric field keys, in right-thumb-to-left-little finger order
// followed by iris/face/palm/voice.
const (
	KeyRightThumb  = 50
	KeyRightIndex  = 51
	KeyRightMiddle = 52
	KeyRightRing   = 53
	KeyRightLittle = 54
	KeyLeftThumb   = 55
	KeyLeftIndex   = 56
	KeyLeftMiddle  = 57
	KeyLeftRing    = 58
	KeyLeftLittle  = 59
	KeyRightIris   = 60
	KeyLeftIris    = 61
	KeyFace        = 62
	KeyRightPalm   = 63
	KeyLeftPalm    = 64
	KeyVoice       = 65
)

// Enumerated field values.
const (
	GenderMale   = 1
	GenderFemale = 2
	GenderOther  = 3

	MaritalStatusSingle = 1
	MaritalStatusMarried = 2
	MaritalStatusOther   = 3

	PhotoFormatJPEG     = 1
	PhotoFormatJPEG2000 = 2
	PhotoFormatAVIF     = 3
	PhotoFormatWebP     = 4
)

// Biometric sub-map labels: an entry is a map {0: data, 1: format,
// 2: sub_format, 3: issuer}.
const (
	bioLabelData      = 0
	bioLabelFormat    = 1
	bioLabelSubFormat = 2
	bioLabelIssuer    = 3
)

// ValidationError reports a record that fails structural or enum
// validation on encode, or a malformed or out-of-range value encountered
// on decode.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return fmt.Sprintf("identity: %s", e.Reason) }

// BiometricEntry is one element of a biometric field's array. Data is
// the only required sub-field; Format, SubFormat, and Issuer are
// omitted from the wire encoding when zero-valued.
type BiometricEntry struct {
	Data      []byte `validate:"required"`
	Format    uint64
	SubFormat uint64
	Issuer    string
}

// Record is the typed Claim 169 identity record.
type Record struct {
	ID                 string
	Version            string
	Language           string
	FullName           string
	FirstName          string
	MiddleName         string
	LastName           string
	DateOfBirth        string // verbatim YYYY-MM-DD or YYYYMMDD text; never normalized here
	Gender             *uint64 `validate:"omitempty,oneof=1 2 3"`
	Address            string
	Email              string
	Phone              string
	Nationality        string
	MaritalStatus      *uint64 `validate:"omitempty,oneof=1 2 3"`
	Guardian           string
	Photo              []byte
	PhotoFormat        *uint64 `validate:"omitempty,oneof=1 2 3 4"`
	BestQualityFingers []uint64
	SecondaryFullName  string
	SecondaryLanguage  string
	LocationCode       string
	LegalStatus        string
	CountryOfIssuance  string

	RightThumb  []BiometricEntry
	RightIndex  []BiometricEntry
	RightMiddle []BiometricEntry
	RightRing   []BiometricEntry
	RightLittle []BiometricEntry
	LeftThumb   []BiometricEntry
	LeftIndex   []BiometricEntry
	LeftMiddle  []BiometricEntry
	LeftRing    []BiometricEntry
	LeftLittle  []BiometricEntry
	RightIris   []BiometricEntry
	LeftIris    []BiometricEntry
	Face        []BiometricEntry
	RightPalm   []BiometricEntry
	LeftPalm    []BiometricEntry
	Voice       []BiometricEntry
}

var validate = validator.New()

// Validate checks r's enum fields against their allowed integer sets. It
// does not touch date_of_birth — calendar validation needs a parsed
// date, which happens one layer up once the full record is assembled.
func Validate(r *Record) error {
	if err := validate.Struct(r); err != nil {
		return &ValidationError{Reason: err.Error()}
	}
	return nil
}

type biometricField struct {
	key     uint64
	entries []BiometricEntry
}

func (r *Record) biometricFields() []biometricField {
	return []biometricField{
		{KeyRightThumb, r.RightThumb},
		{KeyRightIndex, r.RightIndex},
		{KeyRightMiddle, r.RightMiddle},
		{KeyRightRing, r.RightRing},
		{KeyRightLittle, r.RightLittle},
		{KeyLeftThumb, r.LeftThumb},
		{KeyLeftIndex, r.LeftIndex},
		{KeyLeftMiddle, r.LeftMiddle},
		{KeyLeftRing, r.LeftRing},
		{KeyLeftLittle, r.LeftLittle},
		{KeyRightIris, r.RightIris},
		{KeyLeftIris, r.LeftIris},
		{KeyFace, r.Face},
		{KeyRightPalm, r.RightPalm},
		{KeyLeftPalm, r.LeftPalm},
		{KeyVoice, r.Voice},
	}
}

func encodeBiometricEntries(entries []BiometricEntry) cbor.Value {
	items := make([]cbor.Value, len(entries))
	for i, e := range entries {
		var sub []cbor.MapEntry
		sub = append(sub, cbor.UintEntry(bioLabelData, cbor.Bytes(e.Data)))
		if e.Format != 0 {
			sub = append(sub, cbor.UintEntry(bioLabelFormat, cbor.Uint(e.Format)))
		}
		if e.SubFormat != 0 {
			sub = append(sub, cbor.UintEntry(bioLabelSubFormat, cbor.Uint(e.SubFormat)))
		}
		if e.Issuer != "" {
			sub = append(sub, cbor.UintEntry(bioLabelIssuer, cbor.Text(e.Issuer)))
		}
		items[i] = cbor.Map(sub)
	}
	return cbor.Array(items)
}

func decodeBiometricEntries(v cbor.Value) ([]BiometricEntry, error) {
	if v.Kind != cbor.KindArray {
		return nil, &ValidationError{Reason: "biometric field must be an array"}
	}
	entries := make([]BiometricEntry, len(v.Array))
	for i, item := range v.Array {
		if item.Kind != cbor.KindMap {
			return nil, &ValidationError{Reason: "biometric entry must be a map"}
		}
		var e BiometricEntry
		found := false
		for _, me := range item.Map {
			if me.Key.Kind != cbor.KindUint {
				continue
			}
			switch me.Key.Int() {
			case bioLabelData:
				if me.Value.Kind != cbor.KindBytes {
					return nil, &ValidationError{Reason: "biometric entry data (0) must be a byte string"}
				}
				e.Data = me.Value.Bytes
				found = true
			case bioLabelFormat:
				e.Format = me.Value.Uint
			case bioLabelSubFormat:
				e.SubFormat = me.Value.Uint
			case bioLabelIssuer:
				if me.Value.Kind == cbor.KindText {
					e.Issuer = me.Value.Text()
				}
			}
		}
		if !found {
			return nil, &ValidationError{Reason: "biometric entry is missing required data (0)"}
		}
		entries[i] = e
	}
	return entries, nil
}

// Marshal encodes r as the canonical Claim 169 integer-keyed CBOR map.
// When skipBiometrics is set, keys 50-65 are omitted entirely, shrinking
// the encoded output for callers that never need biometric data.
func Marshal(r *Record, skipBiometrics bool) ([]byte, error) {
	if err := Validate(r); err != nil {
		return nil, err
	}

	var entries []cbor.MapEntry
	addText := func(key uint64, s string) {
		if s != "" {
			entries = append(entries, cbor.UintEntry(key, cbor.Text(s)))
		}
	}

	addText(KeyID, r.ID)
	addText(KeyVersion, r.Version)
	addText(KeyLanguage, r.Language)
	addText(KeyFullName, r.FullName)
	addText(KeyFirstName, r.FirstName)
	addText(KeyMiddleName, r.MiddleName)
	addText(KeyLastName, r.LastName)
	addText(KeyDateOfBirth, r.DateOfBirth)
	if r.Gender != nil {
		entries = append(entries, cbor.UintEntry(KeyGender, cbor.Uint(*r.Gender)))
	}
	addText(KeyAddress, r.Address)
	addText(KeyEmail, r.Email)
	addText(KeyPhone, r.Phone)
	addText(KeyNationality, r.Nationality)
	if r.MaritalStatus != nil {
		entries = append(entries, cbor.UintEntry(KeyMaritalStatus, cbor.Uint(*r.MaritalStatus)))
	}
	addText(KeyGuardian, r.Guardian)
	if r.Photo != nil {
		entries = append(entries, cbor.UintEntry(KeyPhoto, cbor.Bytes(r.Photo)))
	}
	if r.PhotoFormat != nil {
		entries = append(entries, cbor.UintEntry(KeyPhotoFormat, cbor.Uint(*r.PhotoFormat)))
	}
	if len(r.BestQualityFingers) > 0 {
		fingers := make([]cbor.Value, len(r.BestQualityFingers))
		for i, f := range r.BestQualityFingers {
			fingers[i] = cbor.Uint(f)
		}
		entries = append(entries, cbor.UintEntry(KeyBestQualityFingers, cbor.Array(fingers)))
	}
	addText(KeySecondaryFullName, r.SecondaryFullName)
	addText(KeySecondaryLanguage, r.SecondaryLanguage)
	addText(KeyLocationCode, r.LocationCode)
	addText(KeyLegalStatus, r.LegalStatus)
	addText(KeyCountryOfIssuance, r.CountryOfIssuance)

	if !skipBiometrics {
		for _, f := range r.biometricFields() {
			if len(f.entries) == 0 {
				continue
			}
			entries = append(entries, cbor.UintEntry(f.key, encodeBiometricEntries(f.entries)))
		}
	}

	return cbor.Marshal(cbor.Map(entries)), nil
}

// Unmarshal decodes the Claim 169 integer-keyed CBOR map into a Record.
// skipBiometrics, when set, skips the biometric sub-parses: keys 50-65
// are ignored and the returned Record has no biometric fields.
func Unmarshal(data []byte, maxInput int, skipBiometrics bool) (*Record, error) {
	d := cbor.NewDecoder(maxInput)
	v, n, err := d.Unmarshal(data)
	if err != nil {
		return nil, &ValidationError{Reason: fmt.Sprintf("decoding CBOR: %v", err)}
	}
	if n != len(data) {
		return nil, &ValidationError{Reason: "trailing bytes after identity map"}
	}
	if v.Kind != cbor.KindMap {
		return nil, &ValidationError{Reason: "identity record must be a map"}
	}

	r := &Record{}
	for _, e := range v.Map {
		if e.Key.Kind != cbor.KindUint {
			continue
		}
		key := e.Key.Int()

		if skipBiometrics && key >= KeyRightThumb && key <= KeyVoice {
			continue
		}

		switch key {
		case KeyID:
			r.ID = textOrEmpty(e.Value)
		case KeyVersion:
			r.Version = textOrEmpty(e.Value)
		case KeyLanguage:
			r.Language = textOrEmpty(e.Value)
		case KeyFullName:
			r.FullName = textOrEmpty(e.Value)
		case KeyFirstName:
			r.FirstName = textOrEmpty(e.Value)
		case KeyMiddleName:
			r.MiddleName = textOrEmpty(e.Value)
		case KeyLastName:
			r.LastName = textOrEmpty(e.Value)
		case KeyDateOfBirth:
			r.DateOfBirth = textOrEmpty(e.Value)
		case KeyGender:
			if e.Value.Kind != cbor.KindUint {
				return nil, &ValidationError{Reason: "gender (9) must be an unsigned integer"}
			}
			u := e.Value.Uint
			r.Gender = &u
		case KeyAddress:
			r.Address = textOrEmpty(e.Value)
		case KeyEmail:
			r.Email = textOrEmpty(e.Value)
		case KeyPhone:
			r.Phone = textOrEmpty(e.Value)
		case KeyNationality:
			r.Nationality = textOrEmpty(e.Value)
		case KeyMaritalStatus:
			if e.Value.Kind != cbor.KindUint {
				return nil, &ValidationError{Reason: "marital_status (14) must be an unsigned integer"}
			}
			u := e.Value.Uint
			r.MaritalStatus = &u
		case KeyGuardian:
			r.Guardian = textOrEmpty(e.Value)
		case KeyPhoto:
			if e.Value.Kind == cbor.KindBytes {
				r.Photo = e.Value.Bytes
			}
		case KeyPhotoFormat:
			if e.Value.Kind != cbor.KindUint {
				return nil, &ValidationError{Reason: "photo_format (17) must be an unsigned integer"}
			}
			u := e.Value.Uint
			r.PhotoFormat = &u
		case KeyBestQualityFingers:
			if e.Value.Kind == cbor.KindArray {
				fingers := make([]uint64, len(e.Value.Array))
				for i, item := range e.Value.Array {
					if item.Kind != cbor.KindUint {
						return nil, &ValidationError{Reason: "best_quality_fingers (18) elements must be unsigned integers"}
					}
					fingers[i] = item.Uint
				}
				r.BestQualityFingers = fingers
			}
		case KeySecondaryFullName:
			r.SecondaryFullName = textOrEmpty(e.Value)
		case KeySecondaryLanguage:
			r.SecondaryLanguage = textOrEmpty(e.Value)
		case KeyLocationCode:
			r.LocationCode = textOrEmpty(e.Value)
		case KeyLegalStatus:
			r.LegalStatus = textOrEmpty(e.Value)
		case KeyCountryOfIssuance:
			r.CountryOfIssuance = textOrEmpty(e.Value)
		default:
			if key < KeyRightThumb || key > KeyVoice {
				// Unrecognized key outside both the demographic and
				// biometric ranges; the identity map never re-emits
				// these.
				continue
			}
			entries, err := decodeBiometricEntries(e.Value)
			if err != nil {
				return nil, err
			}
			if err := assignBiometricField(r, uint64(key), entries); err != nil {
				return nil, err
			}
		}
	}

	if err := Validate(r); err != nil {
		return nil, err
	}
	return r, nil
}

func textOrEmpty(v cbor.Value) string {
	if v.Kind == cbor.KindText {
		return v.Text()
	}
	return ""
}

func assignBiometricField(r *Record, key uint64, entries []BiometricEntry) error {
	switch key {
	case KeyRightThumb:
		r.RightThumb = entries
	case KeyRightIndex:
		r.RightIndex = entries
	case KeyRightMiddle:
		r.RightMiddle = entries
	case KeyRightRing:
		r.RightRing = entries
	case KeyRightLittle:
		r.RightLittle = entries
	case KeyLeftThumb:
		r.LeftThumb = entries
	case KeyLeftIndex:
		r.LeftIndex = entries
	case KeyLeftMiddle:
		r.LeftMiddle = entries
	case KeyLeftRing:
		r.LeftRing = entries
	case KeyLeftLittle:
		r.LeftLittle = entries
	case KeyRightIris:
		r.RightIris = entries
	case KeyLeftIris:
		r.LeftIris = entries
	case KeyFace:
		r.Face = entries
	case KeyRightPalm:
		r.RightPalm = entries
	case KeyLeftPalm:
		r.LeftPalm = entries
	case KeyVoice:
		r.Voice = entries
	default:
		// Unrecognized key outside the reserved biometric range; the
		// decoder never re-emits it.
	}
	return nil
}
