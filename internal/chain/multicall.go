package chain

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// multicall3 is deployed at the same address on every supported chain.
var multicall3Address = common.HexToAddress("0xcA11bde05977b3631167028862bE2a173976CA11")

const multicall3ABIJSON = `[
  {
    "inputs": [
      {
        "components": [
          {"internalType": "address", "name": "target", "type": "address"},
          {"internalType": "bool", "name": "allowFailure", "type": "bool"},
          {"internalType": "bytes", "name": "callData", "type": "bytes"}
        ],
        "internalType": "struct Multicall3.Call3[]",
        "name": "calls",
        "type": "tuple[]"
      }
    ],
    "name": "aggregate3",
    "outputs": [
      {
        "components": [
          {"internalType": "bool", "name": "success", "type": "bool"},
          {"internalType": "bytes", "name": "returnData", "type": "bytes"}
        ],
        "internalType": "struct Multicall3.Result[]",
        "name": "returnData",
        "type": "tuple[]"
      }
    ],
    "stateMutability": "payable",
    "type": "function"
  }
]`

var (
	multicall3ABI     abi.ABI
	multicall3Once    sync.Once
	multicall3ABIErr  error
)

func multicall3Instance() (abi.ABI, error) {
	multicall3Once.Do(func() {
		multicall3ABI, multicall3ABIErr = abi.JSON(strings.NewReader(multicall3ABIJSON))
	})
	return multicall3ABI, multicall3ABIErr
}

// Call describes one contract read inside a multicall batch.
type Call struct {
	Target common.Address
	ABI    abi.ABI
	Method string
	Args   []interface{}
}

type multicall3Call struct {
	Target       common.Address
	AllowFailure bool
	CallData     []byte
}

type multicall3Result struct {
	Success    bool
	ReturnData []byte
}

// Multicall batches the calls into a single aggregate3 round trip pinned to
// blockNumber and returns the unpacked outputs per call, in input order. Any
// individual call failure fails the whole batch.
func (c *Client) Multicall(ctx context.Context, blockNumber uint64, calls []Call) ([][]interface{}, error) {
	if len(calls) == 0 {
		return nil, nil
	}

	mcABI, err := multicall3Instance()
	if err != nil {
		return nil, fmt.Errorf("parse multicall abi: %w", err)
	}

	packed := make([]multicall3Call, 0, len(calls))
	for _, call := range calls {
		data, err := call.ABI.Pack(call.Method, call.Args...)
		if err != nil {
			return nil, fmt.Errorf("pack %s: %w", call.Method, err)
		}
		packed = append(packed, multicall3Call{Target: call.Target, CallData: data})
	}

	input, err := mcABI.Pack("aggregate3", packed)
	if err != nil {
		return nil, fmt.Errorf("pack aggregate3: %w", err)
	}

	var blockPtr *big.Int
	if blockNumber > 0 {
		blockPtr = new(big.Int).SetUint64(blockNumber)
	}

	msg := ethereum.CallMsg{To: &multicall3Address, Data: input}
	resp, err := c.CallContract(ctx, msg, blockPtr)
	if err != nil {
		return nil, fmt.Errorf("call aggregate3: %w", err)
	}

	values, err := mcABI.Unpack("aggregate3", resp)
	if err != nil {
		return nil, fmt.Errorf("unpack aggregate3: %w", err)
	}
	if len(values) != 1 {
		return nil, fmt.Errorf("aggregate3 return size %d", len(values))
	}

	raw, err := asMulticallResults(values[0])
	if err != nil {
		return nil, err
	}
	if len(raw) != len(calls) {
		return nil, fmt.Errorf("aggregate3 returned %d results for %d calls", len(raw), len(calls))
	}

	results := make([][]interface{}, 0, len(calls))
	for i, call := range calls {
		if !raw[i].Success {
			return nil, fmt.Errorf("multicall %s on %s reverted", call.Method, call.Target.Hex())
		}
		outputs, err := call.ABI.Unpack(call.Method, raw[i].ReturnData)
		if err != nil {
			return nil, fmt.Errorf("unpack %s: %w", call.Method, err)
		}
		results = append(results, outputs)
	}

	return results, nil
}

func asMulticallResults(value interface{}) ([]multicall3Result, error) {
	entries, ok := value.([]struct {
		Success    bool   `json:"success"`
		ReturnData []byte `json:"returnData"`
	})
	if !ok {
		return nil, fmt.Errorf("unsupported aggregate3 result type %T", value)
	}
	out := make([]multicall3Result, 0, len(entries))
	for _, entry := range entries {
		out = append(out, multicall3Result{Success: entry.Success, ReturnData: entry.ReturnData})
	}
	return out, nil
}
