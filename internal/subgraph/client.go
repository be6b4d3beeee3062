package subgraph

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"strings"

	"go.uber.org/zap"

	"vaultScope/internal/errs"
	"vaultScope/internal/httpx"
	"vaultScope/internal/model"
)

// PageSize is the fixed number of records per underlying page.
const PageSize = 1000

// Client issues block-pinned, paginated queries against the indexed data
// source. Queries are always pinned to an explicit historical block, never
// "latest", so identical queries are reproducible. Failures surface as
// QueryError with no retry at this layer.
type Client struct {
	http     *httpx.Client
	endpoint string
	logger   *zap.Logger
}

// NewClient builds a Client. endpoint contains a "{chain}" placeholder that
// selects the per-chain deployment. A nil logger falls back to a no-op
// logger.
func NewClient(httpClient *httpx.Client, endpoint string, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{http: httpClient, endpoint: endpoint, logger: logger}
}

func (c *Client) url(chainID string) string {
	return strings.ReplaceAll(c.endpoint, "{chain}", chainID)
}

type graphRequest struct {
	Query     string                 `json:"query"`
	Variables map[string]interface{} `json:"variables"`
}

type graphResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

func (c *Client) query(ctx context.Context, chainID, query string, variables map[string]interface{}, out interface{}) error {
	var resp graphResponse
	if err := c.http.PostJSON(ctx, c.url(chainID), graphRequest{Query: query, Variables: variables}, &resp); err != nil {
		return errs.Query(err)
	}

	if len(resp.Errors) > 0 {
		messages := make([]string, 0, len(resp.Errors))
		for _, e := range resp.Errors {
			messages = append(messages, e.Message)
		}
		return errs.Query(fmt.Errorf("%s", strings.Join(messages, ", ")))
	}

	if err := json.Unmarshal(resp.Data, out); err != nil {
		return errs.Query(fmt.Errorf("decode data: %w", err))
	}
	return nil
}

// parseAmount parses a raw decimal-string amount as an arbitrary-precision
// integer. Amounts are never parsed as floating point.
func parseAmount(raw string) (*big.Int, error) {
	value, ok := new(big.Int).SetString(raw, 10)
	if !ok {
		return nil, fmt.Errorf("invalid integer amount %q", raw)
	}
	return value, nil
}

// BalanceQuery selects token holder balances at a fixed block.
type BalanceQuery struct {
	BlockNumber       uint64
	TokenAddresses    []string
	AmountGreaterThan *big.Int
}

const tokenBalancesQuery = `
query TokenBalances($blockNumber: Int!, $tokens: [String!]!, $amountGt: BigInt!, $skip: Int!, $first: Int!) {
  tokenBalances(
    block: {number: $blockNumber}
    where: {token_in: $tokens, amount_gt: $amountGt}
    skip: $skip
    first: $first
  ) {
    account { id }
    token { id }
    amount
  }
}`

type tokenBalancesData struct {
	TokenBalances []struct {
		Account struct {
			ID string `json:"id"`
		} `json:"account"`
		Token struct {
			ID string `json:"id"`
		} `json:"token"`
		Amount string `json:"amount"`
	} `json:"tokenBalances"`
}

// GetTokenBalances retrieves every holder balance for the token addresses
// at the query block, paginating until a short page. Non-positive amounts
// are excluded by the query itself, never by downstream filtering.
func (c *Client) GetTokenBalances(ctx context.Context, chainID string, q BalanceQuery) ([]model.TokenBalance, error) {
	amountGt := q.AmountGreaterThan
	if amountGt == nil {
		amountGt = big.NewInt(0)
	}

	tokens := make([]string, 0, len(q.TokenAddresses))
	for _, address := range q.TokenAddresses {
		tokens = append(tokens, strings.ToLower(address))
	}

	var all []model.TokenBalance
	for skip := 0; ; skip += PageSize {
		var data tokenBalancesData
		err := c.query(ctx, chainID, tokenBalancesQuery, map[string]interface{}{
			"blockNumber": q.BlockNumber,
			"tokens":      tokens,
			"amountGt":    amountGt.String(),
			"skip":        skip,
			"first":       PageSize,
		}, &data)
		if err != nil {
			return nil, err
		}

		for _, row := range data.TokenBalances {
			amount, err := parseAmount(row.Amount)
			if err != nil {
				return nil, errs.Query(err)
			}
			all = append(all, model.TokenBalance{
				UserAddress:  strings.ToLower(row.Account.ID),
				TokenAddress: strings.ToLower(row.Token.ID),
				Balance:      amount,
			})
		}

		if len(data.TokenBalances) < PageSize {
			break
		}
	}

	return all, nil
}

const breakdownRowsQuery = `
query TokenBreakdownBalancesBySymbol($blockNumber: Int!, $symbols: [String!]!, $skip: Int!, $first: Int!) {
  tokenBreakdowns(
    block: {number: $blockNumber}
    where: {token_symbol_in: $symbols, balance_gt: 0}
    skip: $skip
    first: $first
  ) {
    vault { id address }
    token { address symbol decimals }
    investor { id }
    shareBalance
    balance
    timeWeightedBalance
    lastUpdateBlock
    lastUpdateTimestamp
  }
}`

type breakdownRowsData struct {
	TokenBreakdowns []struct {
		Vault struct {
			ID      string `json:"id"`
			Address string `json:"address"`
		} `json:"vault"`
		Token struct {
			Address  string `json:"address"`
			Symbol   string `json:"symbol"`
			Decimals uint8  `json:"decimals"`
		} `json:"token"`
		Investor struct {
			ID string `json:"id"`
		} `json:"investor"`
		ShareBalance        string `json:"shareBalance"`
		Balance             string `json:"balance"`
		TimeWeightedBalance string `json:"timeWeightedBalance"`
		LastUpdateBlock     string `json:"lastUpdateBlock"`
		LastUpdateTimestamp string `json:"lastUpdateTimestamp"`
	} `json:"tokenBreakdowns"`
}

// GetBreakdownRows retrieves pre-computed per-position breakdown lines for
// the tracked symbols at the query block.
func (c *Client) GetBreakdownRows(ctx context.Context, chainID string, blockNumber uint64, symbols []string) ([]model.BreakdownRow, error) {
	var all []model.BreakdownRow
	for skip := 0; ; skip += PageSize {
		var data breakdownRowsData
		err := c.query(ctx, chainID, breakdownRowsQuery, map[string]interface{}{
			"blockNumber": blockNumber,
			"symbols":     symbols,
			"skip":        skip,
			"first":       PageSize,
		}, &data)
		if err != nil {
			return nil, err
		}

		for _, row := range data.TokenBreakdowns {
			shares, err := parseAmount(row.ShareBalance)
			if err != nil {
				return nil, errs.Query(err)
			}
			balance, err := parseAmount(row.Balance)
			if err != nil {
				return nil, errs.Query(err)
			}
			weighted, err := parseAmount(row.TimeWeightedBalance)
			if err != nil {
				return nil, errs.Query(err)
			}
			blockNum, err := parseAmount(row.LastUpdateBlock)
			if err != nil {
				return nil, errs.Query(err)
			}
			blockTs, err := parseAmount(row.LastUpdateTimestamp)
			if err != nil {
				return nil, errs.Query(err)
			}

			all = append(all, model.BreakdownRow{
				VaultID:         row.Vault.ID,
				VaultAddress:    strings.ToLower(row.Vault.Address),
				TokenAddress:    strings.ToLower(row.Token.Address),
				TokenSymbol:     row.Token.Symbol,
				TokenDecimals:   row.Token.Decimals,
				InvestorAddress: strings.ToLower(row.Investor.ID),
				ShareBalance:    shares,
				Balance:         balance,
				TimeWeighted1s:  weighted,
				LastUpdate: model.BlockRef{
					Number:    blockNum.Uint64(),
					Timestamp: blockTs.Uint64(),
				},
			})
		}

		if len(data.TokenBreakdowns) < PageSize {
			break
		}
	}

	return all, nil
}
