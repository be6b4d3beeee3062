package server

import (
	"encoding/json"
	"errors"
	"math/big"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"vaultScope/internal/aggregate"
	"vaultScope/internal/errs"
	"vaultScope/internal/model"
	"vaultScope/internal/registry"
	"vaultScope/internal/service"
)

var errInvalidBlock = errors.New("block must be a decimal block number")

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func errorBody(message string) map[string]string {
	return map[string]string{"error": message}
}

// writeError maps domain errors onto status codes. Friendly and not-found
// errors carry their message through as a 404; upstream query failures and
// invariant violations surface as a 500 with a generic body so internal
// detail never leaks.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	if errs.IsFriendly(err) {
		writeJSON(w, http.StatusNotFound, errorBody(err.Error()))
		return
	}

	var queryErr *errs.QueryError
	if errors.As(err, &queryErr) {
		s.logger.Error("upstream query failed",
			zap.Error(err),
			zap.String("path", r.URL.Path),
		)
		writeJSON(w, http.StatusInternalServerError, errorBody("upstream query failed"))
		return
	}

	s.logger.Error("request failed",
		zap.Error(err),
		zap.String("path", r.URL.Path),
	)
	writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
}

// dec serializes a raw integer balance as a decimal string. Balances never
// travel as JSON numbers, which would lose precision past 2^53.
func dec(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

type blockRefDTO struct {
	Number    string `json:"number"`
	Timestamp string `json:"timestamp"`
}

func blockRef(b model.BlockRef) blockRefDTO {
	return blockRefDTO{
		Number:    strconv.FormatUint(b.Number, 10),
		Timestamp: strconv.FormatUint(b.Timestamp, 10),
	}
}

type detailDTO struct {
	Vault          string `json:"vault"`
	Balance        string `json:"balance"`
	Token          string `json:"token"`
	TimeWeighted1h string `json:"time_weighted_balance_1h"`
}

type providerRowDTO struct {
	Address          string      `json:"address"`
	EffectiveBalance string      `json:"effective_balance"`
	TimeWeighted1h   string      `json:"time_weighted_effective_balance_1h"`
	LastUpdateBlock  blockRefDTO `json:"last_update_block"`
	Detail           []detailDTO `json:"detail"`
}

type vaultTotalDTO struct {
	ID      string `json:"id"`
	Address string `json:"address"`
	Total   string `json:"total"`
}

type providerBalancesDTO struct {
	Result []providerRowDTO `json:"result"`
	Meta   struct {
		Provider string          `json:"provider"`
		ChainID  string          `json:"chainId"`
		Block    blockRefDTO     `json:"block"`
		Vaults   []vaultTotalDTO `json:"vaults"`
	} `json:"meta"`
}

func providerBalancesResponse(provider registry.ProviderID, result *aggregate.ProviderResult) providerBalancesDTO {
	var out providerBalancesDTO
	out.Result = make([]providerRowDTO, 0, len(result.Rows))
	for _, row := range result.Rows {
		dto := providerRowDTO{
			Address:          row.Address,
			EffectiveBalance: dec(row.EffectiveBalance),
			TimeWeighted1h:   dec(row.TimeWeighted1h),
			LastUpdateBlock:  blockRef(row.LastUpdateBlock),
			Detail:           make([]detailDTO, 0, len(row.Detail)),
		}
		for _, line := range row.Detail {
			dto.Detail = append(dto.Detail, detailDTO{
				Vault:          line.Vault,
				Balance:        dec(line.Balance),
				Token:          line.Token,
				TimeWeighted1h: dec(line.TimeWeighted1h),
			})
		}
		out.Result = append(out.Result, dto)
	}
	out.Meta.Provider = string(provider)
	out.Meta.ChainID = result.Meta.ChainID
	out.Meta.Block = blockRef(result.Meta.Block)
	out.Meta.Vaults = make([]vaultTotalDTO, 0, len(result.Meta.Vaults))
	for _, v := range result.Meta.Vaults {
		out.Meta.Vaults = append(out.Meta.Vaults, vaultTotalDTO{ID: v.ID, Address: v.Address, Total: dec(v.Total)})
	}
	return out
}

type userBalanceDTO struct {
	Address string `json:"address"`
	Token   string `json:"token"`
	Balance string `json:"balance"`
	Detail  []struct {
		Vault        string `json:"vault"`
		VaultAddress string `json:"vault_address"`
		Contribution string `json:"contribution"`
	} `json:"detail,omitempty"`
}

type userBalancesDTO struct {
	Result []userBalanceDTO `json:"result"`
	Meta   struct {
		ChainID string `json:"chainId"`
		Block   string `json:"block"`
	} `json:"meta"`
}

func userBalancesResponse(chainID string, block uint64, rows []model.UserTokenBalance) userBalancesDTO {
	var out userBalancesDTO
	out.Result = make([]userBalanceDTO, 0, len(rows))
	for _, row := range rows {
		dto := userBalanceDTO{
			Address: row.UserAddress,
			Token:   row.TokenAddress,
			Balance: dec(row.Balance),
		}
		for _, d := range row.Details {
			dto.Detail = append(dto.Detail, struct {
				Vault        string `json:"vault"`
				VaultAddress string `json:"vault_address"`
				Contribution string `json:"contribution"`
			}{Vault: d.VaultID, VaultAddress: d.VaultAddress, Contribution: dec(d.Contribution)})
		}
		out.Result = append(out.Result, dto)
	}
	out.Meta.ChainID = chainID
	out.Meta.Block = strconv.FormatUint(block, 10)
	return out
}

type rankedDTO struct {
	Result []struct {
		Address    string  `json:"address"`
		BalanceUSD float64 `json:"balance_usd"`
	} `json:"result"`
	Pagination struct {
		Page       int `json:"page"`
		PageSize   int `json:"page_size"`
		TotalPages int `json:"total_pages"`
	} `json:"pagination"`
}

func rankedResponse(page *service.RankedPage) rankedDTO {
	var out rankedDTO
	for _, p := range page.Positions {
		out.Result = append(out.Result, struct {
			Address    string  `json:"address"`
			BalanceUSD float64 `json:"balance_usd"`
		}{Address: p.Address, BalanceUSD: p.BalanceUSD})
	}
	if out.Result == nil {
		out.Result = make([]struct {
			Address    string  `json:"address"`
			BalanceUSD float64 `json:"balance_usd"`
		}, 0)
	}
	out.Pagination.Page = page.Page
	out.Pagination.PageSize = page.PageSize
	out.Pagination.TotalPages = page.TotalPages
	return out
}

type weightDTO struct {
	Address string `json:"address"`
	Amount  string `json:"amount"`
	Weight  string `json:"weight"`
}

func weightsResponse(weights []aggregate.HolderWeight) map[string]interface{} {
	out := make([]weightDTO, 0, len(weights))
	for _, w := range weights {
		out = append(out, weightDTO{Address: w.Address, Amount: dec(w.Amount), Weight: dec(w.Weight)})
	}
	return map[string]interface{}{"result": out}
}

type holderDTO struct {
	Address string `json:"address"`
	Shares  string `json:"shares"`
}

func holdersResponse(holders []service.Holder) map[string]interface{} {
	out := make([]holderDTO, 0, len(holders))
	for _, h := range holders {
		out = append(out, holderDTO{Address: h.Address, Shares: dec(h.Shares)})
	}
	return map[string]interface{}{"result": out}
}

type chainDTO struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Providers []string `json:"providers"`
}

func chainsResponse() map[string]interface{} {
	providers := registry.AllProviderIDs()
	out := make([]chainDTO, 0, len(registry.AllChainIDs()))
	for _, id := range registry.AllChainIDs() {
		c := registry.GetChainOrNil(id)
		dto := chainDTO{ID: c.ID, Name: c.Name, Providers: make([]string, 0, len(c.Providers))}
		for _, p := range providers {
			if _, ok := c.Providers[p]; ok {
				dto.Providers = append(dto.Providers, string(p))
			}
		}
		out = append(out, dto)
	}
	return map[string]interface{}{"result": out}
}

type positionDTO struct {
	VaultAddress    string      `json:"vault_address"`
	TokenAddress    string      `json:"underlying_token_address"`
	TokenSymbol     string      `json:"underlying_token_symbol"`
	InvestorAddress string      `json:"investor_address"`
	ShareBalance    string      `json:"latest_share_balance"`
	Underlying      string      `json:"latest_underlying_balance"`
	LastUpdateBlock blockRefDTO `json:"breakdown_last_update_block"`
}

func positionsResponse(positions []model.Position) map[string]interface{} {
	out := make([]positionDTO, 0, len(positions))
	for _, p := range positions {
		out = append(out, positionDTO{
			VaultAddress:    p.VaultAddress,
			TokenAddress:    p.TokenAddress,
			TokenSymbol:     p.TokenSymbol,
			InvestorAddress: p.HolderAddress,
			ShareBalance:    dec(p.ShareBalance),
			Underlying:      dec(p.UnderlyingValue),
			LastUpdateBlock: blockRef(p.LastUpdate),
		})
	}
	return map[string]interface{}{"result": out}
}

type vaultSharesDTO struct {
	VaultID      string      `json:"vault_id"`
	VaultAddress string      `json:"vault_address"`
	Holders      []holderDTO `json:"holders"`
}

func vaultSharesResponse(shares []service.VaultShares) map[string]interface{} {
	out := make([]vaultSharesDTO, 0, len(shares))
	for _, vs := range shares {
		dto := vaultSharesDTO{
			VaultID:      vs.VaultID,
			VaultAddress: vs.VaultAddress,
			Holders:      make([]holderDTO, 0, len(vs.Holders)),
		}
		for _, h := range vs.Holders {
			dto.Holders = append(dto.Holders, holderDTO{Address: h.Address, Shares: dec(h.Shares)})
		}
		out = append(out, dto)
	}
	return map[string]interface{}{"result": out}
}
