package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/betlink/affiliate-engine/internal/cache"
	"github.com/betlink/affiliate-engine/internal/constants"
	"github.com/betlink/affiliate-engine/internal/logger"
	"github.com/betlink/affiliate-engine/internal/models"
	"github.com/betlink/affiliate-engine/internal/repository"

	"github.com/shopspring/decimal"
)

// Rate caps. The level-1 revenue share never exceeds 50% and the shares for
// levels 2 to 5 never exceed 10%, whatever the table says.
var (
	revShareLevel1Cap    = decimal.NewFromInt(50)
	revShareSublevelsCap = decimal.NewFromInt(10)
)

const rateTableCacheKey = "rate_table"

// LevelRates is one explicit (category, level) row of the rate table.
type LevelRates struct {
	Level                int             `json:"level"`
	RevShareLevel1       decimal.Decimal `json:"rev_share_level_1"`
	RevShareLevels2to5   decimal.Decimal `json:"rev_share_levels_2_5"`
	MinDirectIndications int64           `json:"min_direct_indications"`
	MinTotalIndications  int64           `json:"min_total_indications"`
	MinCommissions       decimal.Decimal `json:"min_commissions"`
	LevelUpBonus         decimal.Decimal `json:"level_up_bonus"`
}

// ParametricRates derives per-level rates for the upper categories:
// rate(level) = min(base + (level-1) * step, cap).
type ParametricRates struct {
	RevShareLevel1Base     decimal.Decimal `json:"rev_share_level_1_base"`
	RevShareLevel1Step     decimal.Decimal `json:"rev_share_level_1_step"`
	RevShareSublevelsBase  decimal.Decimal `json:"rev_share_levels_2_5_base"`
	RevShareSublevelsStep  decimal.Decimal `json:"rev_share_levels_2_5_step"`
	DirectIndicationsBase  int64           `json:"direct_indications_base"`
	DirectIndicationsStep  int64           `json:"direct_indications_step"`
	TotalIndicationsBase   int64           `json:"total_indications_base"`
	TotalIndicationsStep   int64           `json:"total_indications_step"`
	MinCommissionsBase     decimal.Decimal `json:"min_commissions_base"`
	MinCommissionsStep     decimal.Decimal `json:"min_commissions_step"`
	LevelUpBonusBase       decimal.Decimal `json:"level_up_bonus_base"`
	LevelUpBonusStep       decimal.Decimal `json:"level_up_bonus_step"`
}

// CategoryRates holds one category's rates, either as explicit per-level
// rows or as a parametric formula.
type CategoryRates struct {
	MaxLevel   int              `json:"max_level"`
	Levels     []LevelRates     `json:"levels,omitempty"`
	Parametric *ParametricRates `json:"parametric,omitempty"`
}

// RateTable is the full category rate configuration. It is stored as JSON
// in the settings store so deployments can tune it without a rebuild.
type RateTable struct {
	Categories map[string]CategoryRates `json:"categories"`
}

// CategoryConfig is the resolved rate record the distributor and the
// progression evaluator consume.
type CategoryConfig struct {
	Category             string          `json:"category"`
	Level                int             `json:"level"`
	RevShareLevel1       decimal.Decimal `json:"rev_share_level_1"`
	RevShareLevels2to5   decimal.Decimal `json:"rev_share_levels_2_5"`
	MinDirectIndications int64           `json:"min_direct_indications"`
	MinTotalIndications  int64           `json:"min_total_indications"`
	MinCommissions       decimal.Decimal `json:"min_commissions"`
	LevelUpBonus         decimal.Decimal `json:"level_up_bonus"`
}

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(fmt.Sprintf("bad rate literal %q: %v", s, err))
	}
	return d
}

// DefaultRateTable returns the built-in table. The first three categories
// are hand-tuned per level; the upper four follow the parametric formula.
func DefaultRateTable() RateTable {
	return RateTable{
		Categories: map[string]CategoryRates{
			constants.CategoryJogador: {
				MaxLevel: 5,
				Levels: []LevelRates{
					{Level: 1, RevShareLevel1: dec("1.00"), RevShareLevels2to5: dec("2.00"), MinDirectIndications: 0, MinTotalIndications: 0, MinCommissions: dec("0"), LevelUpBonus: dec("0")},
					{Level: 2, RevShareLevel1: dec("6.00"), RevShareLevels2to5: dec("3.00"), MinDirectIndications: 5, MinTotalIndications: 5, MinCommissions: dec("10.00"), LevelUpBonus: dec("10.00")},
					{Level: 3, RevShareLevel1: dec("8.00"), RevShareLevels2to5: dec("3.00"), MinDirectIndications: 11, MinTotalIndications: 15, MinCommissions: dec("50.00"), LevelUpBonus: dec("15.00")},
					{Level: 4, RevShareLevel1: dec("9.00"), RevShareLevels2to5: dec("3.50"), MinDirectIndications: 21, MinTotalIndications: 40, MinCommissions: dec("150.00"), LevelUpBonus: dec("20.00")},
					{Level: 5, RevShareLevel1: dec("10.00"), RevShareLevels2to5: dec("4.00"), MinDirectIndications: 31, MinTotalIndications: 80, MinCommissions: dec("300.00"), LevelUpBonus: dec("25.00")},
				},
			},
			constants.CategoryIniciante: {
				MaxLevel: 5,
				Levels: []LevelRates{
					{Level: 1, RevShareLevel1: dec("12.00"), RevShareLevels2to5: dec("4.00"), MinDirectIndications: 45, MinTotalIndications: 150, MinCommissions: dec("500.00"), LevelUpBonus: dec("50.00")},
					{Level: 2, RevShareLevel1: dec("14.00"), RevShareLevels2to5: dec("4.50"), MinDirectIndications: 60, MinTotalIndications: 250, MinCommissions: dec("800.00"), LevelUpBonus: dec("60.00")},
					{Level: 3, RevShareLevel1: dec("16.00"), RevShareLevels2to5: dec("5.00"), MinDirectIndications: 80, MinTotalIndications: 400, MinCommissions: dec("1200.00"), LevelUpBonus: dec("70.00")},
					{Level: 4, RevShareLevel1: dec("18.00"), RevShareLevels2to5: dec("5.50"), MinDirectIndications: 100, MinTotalIndications: 600, MinCommissions: dec("1800.00"), LevelUpBonus: dec("80.00")},
					{Level: 5, RevShareLevel1: dec("20.00"), RevShareLevels2to5: dec("6.00"), MinDirectIndications: 120, MinTotalIndications: 850, MinCommissions: dec("2500.00"), LevelUpBonus: dec("90.00")},
				},
			},
			constants.CategoryAfiliado: {
				MaxLevel: 5,
				Levels: []LevelRates{
					{Level: 1, RevShareLevel1: dec("22.00"), RevShareLevels2to5: dec("6.00"), MinDirectIndications: 150, MinTotalIndications: 1200, MinCommissions: dec("3500.00"), LevelUpBonus: dec("150.00")},
					{Level: 2, RevShareLevel1: dec("24.00"), RevShareLevels2to5: dec("6.50"), MinDirectIndications: 180, MinTotalIndications: 1600, MinCommissions: dec("5000.00"), LevelUpBonus: dec("175.00")},
					{Level: 3, RevShareLevel1: dec("26.00"), RevShareLevels2to5: dec("7.00"), MinDirectIndications: 220, MinTotalIndications: 2100, MinCommissions: dec("7000.00"), LevelUpBonus: dec("200.00")},
					{Level: 4, RevShareLevel1: dec("27.00"), RevShareLevels2to5: dec("7.50"), MinDirectIndications: 260, MinTotalIndications: 2700, MinCommissions: dec("9500.00"), LevelUpBonus: dec("225.00")},
					{Level: 5, RevShareLevel1: dec("28.00"), RevShareLevels2to5: dec("8.00"), MinDirectIndications: 300, MinTotalIndications: 3500, MinCommissions: dec("12500.00"), LevelUpBonus: dec("250.00")},
				},
			},
			constants.CategoryProfissional: {
				MaxLevel: 10,
				Parametric: &ParametricRates{
					RevShareLevel1Base:    dec("30.00"),
					RevShareLevel1Step:    dec("1.00"),
					RevShareSublevelsBase: dec("6.50"),
					RevShareSublevelsStep: dec("0.25"),
					DirectIndicationsBase: 350,
					DirectIndicationsStep: 50,
					TotalIndicationsBase:  4500,
					TotalIndicationsStep:  1000,
					MinCommissionsBase:    dec("16000.00"),
					MinCommissionsStep:    dec("4000.00"),
					LevelUpBonusBase:      dec("300.00"),
					LevelUpBonusStep:      dec("50.00"),
				},
			},
			constants.CategoryExpert: {
				MaxLevel: 15,
				Parametric: &ParametricRates{
					RevShareLevel1Base:    dec("34.00"),
					RevShareLevel1Step:    dec("0.80"),
					RevShareSublevelsBase: dec("7.50"),
					RevShareSublevelsStep: dec("0.15"),
					DirectIndicationsBase: 900,
					DirectIndicationsStep: 100,
					TotalIndicationsBase:  16000,
					TotalIndicationsStep:  3000,
					MinCommissionsBase:    dec("60000.00"),
					MinCommissionsStep:    dec("10000.00"),
					LevelUpBonusBase:      dec("800.00"),
					LevelUpBonusStep:      dec("100.00"),
				},
			},
			constants.CategoryMestre: {
				MaxLevel: 30,
				Parametric: &ParametricRates{
					RevShareLevel1Base:    dec("38.00"),
					RevShareLevel1Step:    dec("0.40"),
					RevShareSublevelsBase: dec("8.25"),
					RevShareSublevelsStep: dec("0.06"),
					DirectIndicationsBase: 2500,
					DirectIndicationsStep: 250,
					TotalIndicationsBase:  60000,
					TotalIndicationsStep:  8000,
					MinCommissionsBase:    dec("220000.00"),
					MinCommissionsStep:    dec("30000.00"),
					LevelUpBonusBase:      dec("2000.00"),
					LevelUpBonusStep:      dec("250.00"),
				},
			},
			constants.CategoryLenda: {
				MaxLevel: 90,
				Parametric: &ParametricRates{
					RevShareLevel1Base:    dec("42.00"),
					RevShareLevel1Step:    dec("0.10"),
					RevShareSublevelsBase: dec("9.00"),
					RevShareSublevelsStep: dec("0.02"),
					DirectIndicationsBase: 10000,
					DirectIndicationsStep: 500,
					TotalIndicationsBase:  300000,
					TotalIndicationsStep:  20000,
					MinCommissionsBase:    dec("1200000.00"),
					MinCommissionsStep:    dec("100000.00"),
					LevelUpBonusBase:      dec("5000.00"),
					LevelUpBonusStep:      dec("500.00"),
				},
			},
		},
	}
}

// Validate checks a rate table before it is accepted as the active one.
func (t RateTable) Validate() error {
	if len(t.Categories) == 0 {
		return fmt.Errorf("%w: no categories", ErrRateTableInvalid)
	}
	for _, category := range constants.CategoryOrder {
		rates, ok := t.Categories[category]
		if !ok {
			return fmt.Errorf("%w: missing category %s", ErrRateTableInvalid, category)
		}
		if rates.MaxLevel <= 0 {
			return fmt.Errorf("%w: category %s has no levels", ErrRateTableInvalid, category)
		}
		if len(rates.Levels) == 0 && rates.Parametric == nil {
			return fmt.Errorf("%w: category %s has neither explicit levels nor a formula", ErrRateTableInvalid, category)
		}
		// Explicit rows are checked raw; the parametric formula clamps
		// itself at resolution time.
		for _, row := range rates.Levels {
			if row.RevShareLevel1.GreaterThan(revShareLevel1Cap) {
				return fmt.Errorf("%w: category %s level %d level-1 share exceeds cap", ErrRateTableInvalid, category, row.Level)
			}
			if row.RevShareLevels2to5.GreaterThan(revShareSublevelsCap) {
				return fmt.Errorf("%w: category %s level %d sublevel share exceeds cap", ErrRateTableInvalid, category, row.Level)
			}
			if row.RevShareLevel1.IsNegative() || row.RevShareLevels2to5.IsNegative() {
				return fmt.Errorf("%w: category %s level %d has a negative rate", ErrRateTableInvalid, category, row.Level)
			}
		}
		for level := 1; level <= rates.MaxLevel; level++ {
			if _, ok := resolveLevel(category, level, rates); !ok {
				return fmt.Errorf("%w: category %s level %d unresolvable", ErrRateTableInvalid, category, level)
			}
		}
	}
	return nil
}

// resolveLevel resolves one (category, level) against a category's rates.
// Parametric values are clamped to the caps here so a formula can never
// push a rate past them.
func resolveLevel(category string, level int, rates CategoryRates) (CategoryConfig, bool) {
	if level < 1 || level > rates.MaxLevel {
		return CategoryConfig{}, false
	}
	for _, row := range rates.Levels {
		if row.Level == level {
			return CategoryConfig{
				Category:             category,
				Level:                level,
				RevShareLevel1:       decimal.Min(row.RevShareLevel1, revShareLevel1Cap),
				RevShareLevels2to5:   decimal.Min(row.RevShareLevels2to5, revShareSublevelsCap),
				MinDirectIndications: row.MinDirectIndications,
				MinTotalIndications:  row.MinTotalIndications,
				MinCommissions:       row.MinCommissions,
				LevelUpBonus:         row.LevelUpBonus,
			}, true
		}
	}
	p := rates.Parametric
	if p == nil {
		return CategoryConfig{}, false
	}
	steps := decimal.NewFromInt(int64(level - 1))
	return CategoryConfig{
		Category:             category,
		Level:                level,
		RevShareLevel1:       decimal.Min(p.RevShareLevel1Base.Add(p.RevShareLevel1Step.Mul(steps)), revShareLevel1Cap),
		RevShareLevels2to5:   decimal.Min(p.RevShareSublevelsBase.Add(p.RevShareSublevelsStep.Mul(steps)), revShareSublevelsCap),
		MinDirectIndications: p.DirectIndicationsBase + p.DirectIndicationsStep*int64(level-1),
		MinTotalIndications:  p.TotalIndicationsBase + p.TotalIndicationsStep*int64(level-1),
		MinCommissions:       p.MinCommissionsBase.Add(p.MinCommissionsStep.Mul(steps)),
		LevelUpBonus:         p.LevelUpBonusBase.Add(p.LevelUpBonusStep.Mul(steps)),
	}, true
}

// CategoryConfigProvider resolves (category, level) rate records from the
// active table. The table lives in the settings store, cached in Redis,
// with the built-in default as the final fallback.
type CategoryConfigProvider struct {
	settings repository.SettingRepository
	cacheTTL time.Duration
}

// NewCategoryConfigProvider creates the provider.
func NewCategoryConfigProvider(settings repository.SettingRepository, cacheTTL time.Duration) *CategoryConfigProvider {
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}
	return &CategoryConfigProvider{settings: settings, cacheTTL: cacheTTL}
}

// ActiveTable returns the table currently in force.
func (p *CategoryConfigProvider) ActiveTable(ctx context.Context) RateTable {
	var table RateTable
	hit, err := cache.GetJSON(ctx, rateTableCacheKey, &table)
	if err != nil {
		logger.Warnw("rate table cache read failed", "error", err)
	}
	if hit && len(table.Categories) > 0 {
		return table
	}

	if p != nil && p.settings != nil {
		setting, err := p.settings.GetByKey(constants.SettingKeyRateTable)
		if err != nil {
			logger.Warnw("rate table load failed, using default", "error", err)
		} else if setting != nil {
			if table, ok := decodeRateTable(setting.ValueJSON); ok {
				if err := cache.SetJSON(ctx, rateTableCacheKey, table, p.cacheTTL); err != nil {
					logger.Warnw("rate table cache write failed", "error", err)
				}
				return table
			}
			logger.Warnw("stored rate table malformed, using default")
		}
	}
	return DefaultRateTable()
}

// GetConfig resolves the rate record for (category, level). It never fails:
// anything unknown falls back to the lowest tier's level-1 record so the
// distributor always has a rate to apply.
func (p *CategoryConfigProvider) GetConfig(ctx context.Context, category string, level int) CategoryConfig {
	table := p.ActiveTable(ctx)
	normalized := strings.ToLower(strings.TrimSpace(category))
	if rates, ok := table.Categories[normalized]; ok {
		if cfg, ok := resolveLevel(normalized, level, rates); ok {
			return cfg
		}
	}
	fallbackCategory := constants.CategoryOrder[0]
	if rates, ok := table.Categories[fallbackCategory]; ok {
		if cfg, ok := resolveLevel(fallbackCategory, 1, rates); ok {
			return cfg
		}
	}
	// The stored table failed to resolve even the lowest tier; the
	// built-in default always can.
	cfg, _ := resolveLevel(fallbackCategory, 1, DefaultRateTable().Categories[fallbackCategory])
	return cfg
}

// GetNextConfig returns the record the affiliate would progress into: the
// next level within the same category, else level 1 of the next category in
// the fixed ordering, else nil at the very top.
func (p *CategoryConfigProvider) GetNextConfig(ctx context.Context, category string, level int) *CategoryConfig {
	table := p.ActiveTable(ctx)
	normalized := strings.ToLower(strings.TrimSpace(category))

	idx := -1
	for i, name := range constants.CategoryOrder {
		if name == normalized {
			idx = i
			break
		}
	}
	if idx < 0 {
		// Unknown category is treated as the lowest tier, consistent
		// with GetConfig's fallback.
		idx = 0
		normalized = constants.CategoryOrder[0]
		level = 1
	}

	if rates, ok := table.Categories[normalized]; ok && level < rates.MaxLevel {
		if cfg, ok := resolveLevel(normalized, level+1, rates); ok {
			return &cfg
		}
	}
	if idx+1 < len(constants.CategoryOrder) {
		next := constants.CategoryOrder[idx+1]
		if rates, ok := table.Categories[next]; ok {
			if cfg, ok := resolveLevel(next, 1, rates); ok {
				return &cfg
			}
		}
	}
	return nil
}

// UpdateTable validates and persists a new rate table, then drops the cache.
func (p *CategoryConfigProvider) UpdateTable(ctx context.Context, table RateTable) error {
	if p == nil || p.settings == nil {
		return ErrRateTableInvalid
	}
	if err := table.Validate(); err != nil {
		return err
	}
	raw, err := json.Marshal(table)
	if err != nil {
		return err
	}
	var value models.JSON
	if err := json.Unmarshal(raw, &value); err != nil {
		return err
	}
	if _, err := p.settings.Upsert(constants.SettingKeyRateTable, value); err != nil {
		return err
	}
	if err := cache.Del(ctx, rateTableCacheKey); err != nil {
		logger.Warnw("rate table cache invalidation failed", "error", err)
	}
	return nil
}

func decodeRateTable(value models.JSON) (RateTable, bool) {
	raw, err := json.Marshal(value)
	if err != nil {
		return RateTable{}, false
	}
	var table RateTable
	if err := json.Unmarshal(raw, &table); err != nil {
		return RateTable{}, false
	}
	if len(table.Categories) == 0 {
		return RateTable{}, false
	}
	return table, true
}
