package importer

import (
	"strings"

	"rental-reconciliation-backend/internal/models"
)

// Header aliases in lookup priority order. Japanese bank exports, Traditional
// Chinese platform exports and English exports are covered.
var (
	bankDateCols        = []string{"取引日", "日付", "交易日", "日期", "Date"}
	bankAmountCols      = []string{"取引金額", "金額", "交易金額", "金额", "Amount"}
	bankDepositCols     = []string{"お預入金額", "預入", "入金", "存入", "Deposit", "Credit"}
	bankWithdrawalCols  = []string{"お引出金額", "引出", "出金", "支出", "提出", "Withdrawal", "Debit"}
	bankBalanceCols     = []string{"残高", "餘額", "余额", "Balance"}
	bankDescriptionCols = []string{"摘要", "取引内容", "内容", "說明", "備註", "备注", "Description", "Memo"}

	platformDateCols       = []string{"日期", "日付", "Date"}
	platformTypeCols       = []string{"類型", "类型", "種類", "Type"}
	platformCodeCols       = []string{"確認碼", "确认码", "確認コード", "Confirmation Code"}
	platformPayoutDateCols = []string{"預計付款日期", "入帳日期", "Payout Date"}
	platformAmountCols     = []string{"金額", "金额", "Amount"}
	platformPayoutCols     = []string{"收款", "已收款", "Paid Out"}
	platformRevenueCols    = []string{"總收入", "总收入", "Gross Earnings"}
	platformServiceFeeCols = []string{"服務費", "服务费", "Service Fee"}
	platformCleaningCols   = []string{"清潔費", "清洁费", "Cleaning Fee"}
	platformTaxCols        = []string{"住宿稅", "住宿税", "宿泊税", "Occupancy Taxes"}
	platformNightsCols     = []string{"晚數", "晚数", "泊数", "Nights"}
	platformPropertyCols   = []string{"房源", "リスティング", "Listing"}
)

var (
	payoutLabels  = []string{"payout", "付款", "撥款", "支払"}
	bookingLabels = []string{"reservation", "booking", "預訂", "预订", "訂房", "予約"}
)

// classify maps a raw type label to a transaction type. Rows without a usable
// label fall back on their content: a code means a booking, a payout amount
// without a code means a Payout.
func classify(label, code string, hasPayoutAmount bool) models.PlatformTransactionType {
	l := strings.ToLower(strings.TrimSpace(label))
	if l != "" {
		for _, p := range payoutLabels {
			if strings.Contains(l, p) {
				return models.TypePayout
			}
		}
		for _, b := range bookingLabels {
			if strings.Contains(l, b) {
				return models.TypeBooking
			}
		}
		return models.TypeOther
	}
	switch {
	case code != "":
		return models.TypeBooking
	case hasPayoutAmount:
		return models.TypePayout
	default:
		return models.TypeOther
	}
}
