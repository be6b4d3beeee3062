package breakdown

import (
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

const vaultABIJSON = `[
  {"inputs": [], "name": "balance", "outputs": [{"internalType": "uint256", "name": "", "type": "uint256"}], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "totalSupply", "outputs": [{"internalType": "uint256", "name": "", "type": "uint256"}], "stateMutability": "view", "type": "function"}
]`

const erc20ABIJSON = `[
  {"inputs": [{"internalType": "address", "name": "account", "type": "address"}], "name": "balanceOf", "outputs": [{"internalType": "uint256", "name": "", "type": "uint256"}], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "totalSupply", "outputs": [{"internalType": "uint256", "name": "", "type": "uint256"}], "stateMutability": "view", "type": "function"}
]`

const solidlyPoolABIJSON = `[
  {"inputs": [], "name": "totalSupply", "outputs": [{"internalType": "uint256", "name": "", "type": "uint256"}], "stateMutability": "view", "type": "function"},
  {
    "inputs": [],
    "name": "metadata",
    "outputs": [
      {"internalType": "uint256", "name": "dec0", "type": "uint256"},
      {"internalType": "uint256", "name": "dec1", "type": "uint256"},
      {"internalType": "uint256", "name": "r0", "type": "uint256"},
      {"internalType": "uint256", "name": "r1", "type": "uint256"},
      {"internalType": "bool", "name": "st", "type": "bool"},
      {"internalType": "address", "name": "t0", "type": "address"},
      {"internalType": "address", "name": "t1", "type": "address"}
    ],
    "stateMutability": "view",
    "type": "function"
  }
]`

const hypervisorABIJSON = `[
  {"inputs": [], "name": "totalSupply", "outputs": [{"internalType": "uint256", "name": "", "type": "uint256"}], "stateMutability": "view", "type": "function"},
  {
    "inputs": [],
    "name": "getTotalAmounts",
    "outputs": [
      {"internalType": "uint256", "name": "total0", "type": "uint256"},
      {"internalType": "uint256", "name": "total1", "type": "uint256"}
    ],
    "stateMutability": "view",
    "type": "function"
  },
  {"inputs": [], "name": "token0", "outputs": [{"internalType": "address", "name": "", "type": "address"}], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "token1", "outputs": [{"internalType": "address", "name": "", "type": "address"}], "stateMutability": "view", "type": "function"}
]`

const pendleMarketABIJSON = `[
  {"inputs": [], "name": "totalSupply", "outputs": [{"internalType": "uint256", "name": "", "type": "uint256"}], "stateMutability": "view", "type": "function"},
  {
    "inputs": [],
    "name": "readTokens",
    "outputs": [
      {"internalType": "address", "name": "_SY", "type": "address"},
      {"internalType": "address", "name": "_PT", "type": "address"},
      {"internalType": "address", "name": "_YT", "type": "address"}
    ],
    "stateMutability": "view",
    "type": "function"
  }
]`

const clmManagerABIJSON = `[
  {"inputs": [], "name": "totalSupply", "outputs": [{"internalType": "uint256", "name": "", "type": "uint256"}], "stateMutability": "view", "type": "function"},
  {
    "inputs": [],
    "name": "balances",
    "outputs": [
      {"internalType": "uint256", "name": "amount0", "type": "uint256"},
      {"internalType": "uint256", "name": "amount1", "type": "uint256"}
    ],
    "stateMutability": "view",
    "type": "function"
  },
  {
    "inputs": [],
    "name": "wants",
    "outputs": [
      {"internalType": "address", "name": "token0", "type": "address"},
      {"internalType": "address", "name": "token1", "type": "address"}
    ],
    "stateMutability": "view",
    "type": "function"
  }
]`

var (
	vaultABI        abi.ABI
	vaultABIOnce    sync.Once
	vaultABIErr     error
	erc20ABI        abi.ABI
	erc20ABIOnce    sync.Once
	erc20ABIErr     error
	solidlyABI      abi.ABI
	solidlyABIOnce  sync.Once
	solidlyABIErr   error
	hypervisorABI   abi.ABI
	hypervisorOnce  sync.Once
	hypervisorErr   error
	pendleABI       abi.ABI
	pendleABIOnce   sync.Once
	pendleABIErr    error
	clmABI          abi.ABI
	clmABIOnce      sync.Once
	clmABIErr       error
)

func vaultABIInstance() (abi.ABI, error) {
	vaultABIOnce.Do(func() {
		vaultABI, vaultABIErr = abi.JSON(strings.NewReader(vaultABIJSON))
	})
	return vaultABI, vaultABIErr
}

func erc20ABIInstance() (abi.ABI, error) {
	erc20ABIOnce.Do(func() {
		erc20ABI, erc20ABIErr = abi.JSON(strings.NewReader(erc20ABIJSON))
	})
	return erc20ABI, erc20ABIErr
}

func solidlyABIInstance() (abi.ABI, error) {
	solidlyABIOnce.Do(func() {
		solidlyABI, solidlyABIErr = abi.JSON(strings.NewReader(solidlyPoolABIJSON))
	})
	return solidlyABI, solidlyABIErr
}

func hypervisorABIInstance() (abi.ABI, error) {
	hypervisorOnce.Do(func() {
		hypervisorABI, hypervisorErr = abi.JSON(strings.NewReader(hypervisorABIJSON))
	})
	return hypervisorABI, hypervisorErr
}

func pendleABIInstance() (abi.ABI, error) {
	pendleABIOnce.Do(func() {
		pendleABI, pendleABIErr = abi.JSON(strings.NewReader(pendleMarketABIJSON))
	})
	return pendleABI, pendleABIErr
}

func clmABIInstance() (abi.ABI, error) {
	clmABIOnce.Do(func() {
		clmABI, clmABIErr = abi.JSON(strings.NewReader(clmManagerABIJSON))
	})
	return clmABI, clmABIErr
}

func asBigInt(value interface{}) (*big.Int, error) {
	switch v := value.(type) {
	case *big.Int:
		return new(big.Int).Set(v), nil
	case big.Int:
		return new(big.Int).Set(&v), nil
	case uint8:
		return new(big.Int).SetUint64(uint64(v)), nil
	case uint64:
		return new(big.Int).SetUint64(v), nil
	case int64:
		return big.NewInt(v), nil
	default:
		return nil, fmt.Errorf("unsupported int type %T", value)
	}
}

func asAddress(value interface{}) (common.Address, error) {
	switch v := value.(type) {
	case common.Address:
		return v, nil
	case *common.Address:
		return *v, nil
	default:
		return common.Address{}, fmt.Errorf("unsupported address type %T", value)
	}
}
