// Package anchor carries the static catalogs tied to the Anchor framework:
// recognized CPI entry points, per-kind signer rules, account-wrapper type
// recognition, and the account-constraint extractor.
//
// Everything here is pure data and read-only; the catalogs must match the
// framework's symbols exactly, so def-paths are spelled out in full.
package anchor

// CpiKind classifies a recognized CPI entry point. Function kinds name the
// invocation itself; the paired *Struct kinds name the CPI-accounts
// aggregate type passed to it.
type CpiKind int

const (
	CpiUnknown CpiKind = iota
	SetAuthority
	SetAuthorityStruct
	Burn
	BurnStruct
	MintTo
	MintToStruct
	CreateAta
	CreateAtaStruct
	Transfer
	TransferStruct
	SystemTransfer
	SystemTransferStruct
	Token2022Transfer
	Token2022TransferChecked
	CloseAccount
	CloseAccountStruct
	FreezeAccount
	FreezeAccountStruct
	ThawAccount
	ThawAccountStruct
	Approve
	ApproveStruct
	Revoke
	RevokeStruct
	SyncNative
	SyncNativeStruct
	Token2022MintToChecked
	Token2022BurnChecked
)

var cpiKindNames = map[CpiKind]string{
	CpiUnknown:               "Unknown",
	SetAuthority:             "SetAuthority",
	SetAuthorityStruct:       "SetAuthorityStruct",
	Burn:                     "Burn",
	BurnStruct:               "BurnStruct",
	MintTo:                   "MintTo",
	MintToStruct:             "MintToStruct",
	CreateAta:                "CreateAta",
	CreateAtaStruct:          "CreateAtaStruct",
	Transfer:                 "Transfer",
	TransferStruct:           "TransferStruct",
	SystemTransfer:           "SystemTransfer",
	SystemTransferStruct:     "SystemTransferStruct",
	Token2022Transfer:        "Token2022Transfer",
	Token2022TransferChecked: "Token2022TransferChecked",
	CloseAccount:             "CloseAccount",
	CloseAccountStruct:       "CloseAccountStruct",
	FreezeAccount:            "FreezeAccount",
	FreezeAccountStruct:      "FreezeAccountStruct",
	ThawAccount:              "ThawAccount",
	ThawAccountStruct:        "ThawAccountStruct",
	Approve:                  "Approve",
	ApproveStruct:            "ApproveStruct",
	Revoke:                   "Revoke",
	RevokeStruct:             "RevokeStruct",
	SyncNative:               "SyncNative",
	SyncNativeStruct:         "SyncNativeStruct",
	Token2022MintToChecked:   "Token2022MintToChecked",
	Token2022BurnChecked:     "Token2022BurnChecked",
}

func (k CpiKind) String() string { return cpiKindNames[k] }

// cpiPaths maps every recognized kind to the def-paths the host assigns to
// it. A kind may be reachable under more than one path re-export.
var cpiPaths = map[CpiKind][]string{
	SetAuthority:             {"anchor_spl::token::set_authority"},
	SetAuthorityStruct:       {"anchor_spl::token::SetAuthority"},
	Burn:                     {"anchor_spl::token::burn"},
	BurnStruct:               {"anchor_spl::token::Burn"},
	MintTo:                   {"anchor_spl::token::mint_to"},
	MintToStruct:             {"anchor_spl::token::MintTo"},
	CreateAta:                {"anchor_spl::associated_token::create"},
	CreateAtaStruct:          {"anchor_spl::associated_token::Create"},
	Transfer:                 {"anchor_spl::token::transfer"},
	TransferStruct:           {"anchor_spl::token::Transfer"},
	SystemTransfer:           {"anchor_lang::system_program::transfer"},
	SystemTransferStruct:     {"anchor_lang::system_program::Transfer"},
	Token2022Transfer:        {"anchor_spl::token_2022::spl_token_2022::instruction::transfer"},
	Token2022TransferChecked: {"anchor_spl::token_2022::spl_token_2022::instruction::transfer_checked"},
	CloseAccount:             {"anchor_spl::token::close_account"},
	CloseAccountStruct:       {"anchor_spl::token::CloseAccount"},
	FreezeAccount:            {"anchor_spl::token::freeze_account"},
	FreezeAccountStruct:      {"anchor_spl::token::FreezeAccount"},
	ThawAccount:              {"anchor_spl::token::thaw_account"},
	ThawAccountStruct:        {"anchor_spl::token::ThawAccount"},
	Approve:                  {"anchor_spl::token::approve"},
	ApproveStruct:            {"anchor_spl::token::Approve"},
	Revoke:                   {"anchor_spl::token::revoke"},
	RevokeStruct:             {"anchor_spl::token::Revoke"},
	SyncNative:               {"anchor_spl::token::sync_native"},
	SyncNativeStruct:         {"anchor_spl::token::SyncNative"},
	Token2022MintToChecked:   {"anchor_spl::token_2022::spl_token_2022::instruction::mint_to_checked"},
	Token2022BurnChecked:     {"anchor_spl::token_2022::spl_token_2022::instruction::burn_checked"},
}

// pathToKind is the inverse of cpiPaths, built once at init.
var pathToKind = func() map[string]CpiKind {
	m := make(map[string]CpiKind)
	for kind, paths := range cpiPaths {
		for _, p := range paths {
			m[p] = kind
		}
	}
	return m
}()

// DetectCpiKind classifies a callee def-path against the catalog.
// Unrecognized paths classify as CpiUnknown.
func DetectCpiKind(defPath string) CpiKind {
	return pathToKind[defPath]
}

// MatchesCpiKind reports whether the def-path names the given kind.
func MatchesCpiKind(defPath string, kind CpiKind) bool {
	for _, p := range cpiPaths[kind] {
		if p == defPath {
			return true
		}
	}
	return false
}

// IsCpiAccountsStruct reports whether the def-path names one of the
// recognized CPI-accounts aggregate types (the *Struct kinds).
func IsCpiAccountsStruct(defPath string) bool {
	switch pathToKind[defPath] {
	case SetAuthorityStruct, BurnStruct, MintToStruct, CreateAtaStruct,
		TransferStruct, SystemTransferStruct, CloseAccountStruct,
		FreezeAccountStruct, ThawAccountStruct, ApproveStruct,
		RevokeStruct, SyncNativeStruct:
		return true
	}
	return false
}
