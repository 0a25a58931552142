package realtime_test

import (
	"encoding/json"
	"testing"

	"ctfplatform/internal/realtime"
	"ctfplatform/internal/testutil"
)

func TestEncodeDecode_MessagePerAudience(t *testing.T) {
	event := realtime.Event{
		Type: realtime.KindOpenTask,
		Data: map[realtime.Audience]interface{}{
			realtime.AudienceSupervisors: map[string]interface{}{"id": 1, "state": 2},
			realtime.AudienceTeams:       map[string]interface{}{"id": 1},
		},
	}
	payload, err := realtime.Encode(event)
	testutil.AssertNoError(t, err)

	env, err := realtime.Decode(payload)
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, env.Type, realtime.KindOpenTask)

	msg, ok := env.MessageFor(realtime.AudienceTeams)
	testutil.AssertTrue(t, ok, "teams should be addressed")
	testutil.AssertEqual(t, msg.Type, realtime.KindOpenTask)
	testutil.AssertEqual(t, string(msg.Data), `{"id":1}`)

	msg, ok = env.MessageFor(realtime.AudienceSupervisors)
	testutil.AssertTrue(t, ok, "supervisors should be addressed")
	testutil.AssertEqual(t, string(msg.Data), `{"id":1,"state":2}`)

	_, ok = env.MessageFor(realtime.AudienceGuests)
	testutil.AssertFalse(t, ok, "guests are not addressed")
}

func TestNewEvent(t *testing.T) {
	event := realtime.NewEvent(realtime.KindDisqualifyTeam, map[string]int{"id": 4},
		realtime.AudienceSupervisors, realtime.AudienceGuests)
	testutil.AssertTrue(t, event.For(realtime.AudienceSupervisors), "supervisors addressed")
	testutil.AssertTrue(t, event.For(realtime.AudienceGuests), "guests addressed")
	testutil.AssertFalse(t, event.For(realtime.AudienceTeams), "teams not addressed")
}

func TestMessageWireShape(t *testing.T) {
	env, err := realtime.Decode([]byte(`{"type":"closeTask","data":{"guests":{"id":9}}}`))
	testutil.AssertNoError(t, err)
	msg, ok := env.MessageFor(realtime.AudienceGuests)
	testutil.AssertTrue(t, ok, "guests addressed")

	var decoded map[string]interface{}
	testutil.MustUnmarshalJSON(t, testutil.MustMarshalJSON(t, msg), &decoded)
	testutil.AssertEqual(t, decoded["type"], "closeTask")
	testutil.AssertEqual(t, decoded["data"].(map[string]interface{})["id"], float64(9))
}

func TestEncodeDecode_Errors(t *testing.T) {
	_, err := realtime.Encode(realtime.Event{})
	testutil.AssertTrue(t, err != nil, "empty type rejected on encode")

	_, err = realtime.Decode([]byte(`{"data":{}}`))
	testutil.AssertTrue(t, err != nil, "empty type rejected on decode")

	_, err = realtime.Decode([]byte(`not json`))
	testutil.AssertTrue(t, err != nil, "malformed payload rejected")

	payload, err := realtime.Encode(realtime.Event{Type: realtime.KindCreateTask})
	testutil.AssertNoError(t, err)
	var raw map[string]json.RawMessage
	testutil.MustUnmarshalJSON(t, payload, &raw)
	testutil.AssertEqual(t, string(raw["data"]), "{}")
}

func TestParseAudience(t *testing.T) {
	for _, a := range realtime.Audiences {
		got, err := realtime.ParseAudience(string(a))
		testutil.AssertNoError(t, err)
		testutil.AssertEqual(t, got, a)
	}
	_, err := realtime.ParseAudience("admins")
	testutil.AssertTrue(t, err != nil, "unknown audience rejected")
}
