package events

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

type bareEvent struct{}

func (bareEvent) EventType() string { return "bare" }

func TestLogConvertsAndDrains(t *testing.T) {
	var log Log
	hash := common.HexToHash("0x01")
	log.Emit(BridgeTallySeen{Kind: "eth_msgs", Hash: hash, Power: "1/1", Voters: 3})
	log.Emit(bareEvent{})
	log.Emit(nil)

	if log.Len() != 2 {
		t.Fatalf("expected 2 events, got %d", log.Len())
	}
	records := log.Drain()
	if records[0].Type != TypeBridgeTallySeen || records[0].Attributes["voters"] != "3" {
		t.Fatalf("unexpected first record: %+v", records[0])
	}
	if records[0].Attributes["hash"] != hash.Hex() {
		t.Fatalf("unexpected hash attribute: %s", records[0].Attributes["hash"])
	}
	if records[1].Type != "bare" || len(records[1].Attributes) != 0 {
		t.Fatalf("unexpected bare record: %+v", records[1])
	}
	if log.Len() != 0 || log.Drain() != nil {
		t.Fatalf("drain must reset the log")
	}
	NoopEmitter{}.Emit(bareEvent{})
}

func TestExpirySummaryAttributes(t *testing.T) {
	record := BridgeTalliesExpired{Kind: "valset_upd", Removed: 4, Retained: 1}.Event()
	if record.Attributes["removed"] != "4" || record.Attributes["retained"] != "1" {
		t.Fatalf("unexpected attributes: %v", record.Attributes)
	}
	retained := BridgeTallyRetained{Kind: "eth_msgs", Hash: common.HexToHash("0x02")}.Event()
	if retained.Type != TypeBridgeTallyRetained {
		t.Fatalf("unexpected type %s", retained.Type)
	}
}
