package dynamodb

import (
	"encoding/base64"
	"encoding/json"
	"fmt"

	"songarchive-backend/application/ports"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// cursorKey is the serializable form of a record's position: the table keys
// plus whichever index keys the query ran under. Only string key attributes
// exist in this schema.
type cursorKey struct {
	PK     string `json:"pk"`
	SK     string `json:"sk"`
	GSI1PK string `json:"gsi1pk,omitempty"`
	GSI1SK string `json:"gsi1sk,omitempty"`
	GSI2PK string `json:"gsi2pk,omitempty"`
	GSI2SK string `json:"gsi2sk,omitempty"`
}

// encodeCursor renders a key position as an opaque base64 cursor.
func encodeCursor(key map[string]types.AttributeValue) (ports.Cursor, error) {
	if len(key) == 0 {
		return "", nil
	}

	ck := cursorKey{
		PK:     stringAttr(key, attrPK),
		SK:     stringAttr(key, attrSK),
		GSI1PK: stringAttr(key, attrGSI1PK),
		GSI1SK: stringAttr(key, attrGSI1SK),
		GSI2PK: stringAttr(key, attrGSI2PK),
		GSI2SK: stringAttr(key, attrGSI2SK),
	}

	data, err := json.Marshal(ck)
	if err != nil {
		return "", fmt.Errorf("failed to encode cursor: %w", err)
	}
	return ports.Cursor(base64.URLEncoding.EncodeToString(data)), nil
}

// decodeCursor converts an opaque cursor back into an exclusive start key.
// An empty cursor decodes to nil (start from the beginning).
func decodeCursor(cursor ports.Cursor) (map[string]types.AttributeValue, error) {
	if cursor == "" {
		return nil, nil
	}

	data, err := base64.URLEncoding.DecodeString(string(cursor))
	if err != nil {
		return nil, fmt.Errorf("invalid cursor format: %w", err)
	}

	var ck cursorKey
	if err := json.Unmarshal(data, &ck); err != nil {
		return nil, fmt.Errorf("invalid cursor data: %w", err)
	}

	key := make(map[string]types.AttributeValue, 4)
	putStringAttr(key, attrPK, ck.PK)
	putStringAttr(key, attrSK, ck.SK)
	putStringAttr(key, attrGSI1PK, ck.GSI1PK)
	putStringAttr(key, attrGSI1SK, ck.GSI1SK)
	putStringAttr(key, attrGSI2PK, ck.GSI2PK)
	putStringAttr(key, attrGSI2SK, ck.GSI2SK)
	return key, nil
}

func stringAttr(key map[string]types.AttributeValue, name string) string {
	if v, ok := key[name].(*types.AttributeValueMemberS); ok {
		return v.Value
	}
	return ""
}

func putStringAttr(key map[string]types.AttributeValue, name, value string) {
	if value != "" {
		key[name] = &types.AttributeValueMemberS{Value: value}
	}
}
