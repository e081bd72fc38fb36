package i18n

// PublicCopy is the typed schema of every user-facing string. The English
// dictionary defines it completely; other locales may be partial.
type PublicCopy struct {
	Nav          NavCopy          `json:"nav"`
	Home         HomeCopy         `json:"home"`
	Buy          BuyCopy          `json:"buy"`
	Reasons      ReasonsCopy      `json:"reasons"`
	Errors       ErrorsCopy       `json:"errors"`
	Status       StatusCopy       `json:"status"`
	Invoice      InvoiceCopy      `json:"invoice"`
	Withdrawal   WithdrawalCopy   `json:"withdrawal"`
	AntiScam     AntiScamCopy     `json:"antiScam"`
	Coordinators CoordinatorsCopy `json:"coordinators"`
	DAO          DAOCopy          `json:"dao"`
	Footer       FooterCopy       `json:"footer"`
	Months       MonthsCopy       `json:"months"`
}

type NavCopy struct {
	Home         string `json:"home"`
	Buy          string `json:"buy"`
	Invoices     string `json:"invoices"`
	Withdrawals  string `json:"withdrawals"`
	AntiScam     string `json:"antiScam"`
	Coordinators string `json:"coordinators"`
	DAO          string `json:"dao"`
	Login        string `json:"login"`
	Logout       string `json:"logout"`
}

type HomeCopy struct {
	Title       string `json:"title"`
	Tagline     string `json:"tagline"`
	CTA         string `json:"cta"`
	StageLabel  string `json:"stageLabel"`
	PriceLabel  string `json:"priceLabel"`
	SupplyLabel string `json:"supplyLabel"`
	EndsLabel   string `json:"endsLabel"`
}

type BuyCopy struct {
	Title         string `json:"title"`
	CurrencyLabel string `json:"currencyLabel"`
	AmountLabel   string `json:"amountLabel"`
	WalletLabel   string `json:"walletLabel"`
	WalletHint    string `json:"walletHint"`
	TermsLabel    string `json:"termsLabel"`
	USDEstimate   string `json:"usdEstimate"`
	TPCEstimate   string `json:"tpcEstimate"`
	RateLive      string `json:"rateLive"`
	RateFallback  string `json:"rateFallback"`
	Submit        string `json:"submit"`
	LockedTitle   string `json:"lockedTitle"`
	SponsorLabel  string `json:"sponsorLabel"`
}

// ReasonsCopy holds order validation messages. MinUSD and MinTPC contain a
// {min} placeholder.
type ReasonsCopy struct {
	Terms          string `json:"terms"`
	Amount         string `json:"amount"`
	WalletRequired string `json:"walletRequired"`
	WalletShort    string `json:"walletShort"`
	WalletInvalid  string `json:"walletInvalid"`
	MinUSD         string `json:"minUsd"`
	MinTPC         string `json:"minTpc"`
}

type ErrorsCopy struct {
	AuthRequired         string `json:"authRequired"`
	Forbidden            string `json:"forbidden"`
	Generic              string `json:"generic"`
	PrecisionIDR         string `json:"precisionIdr"`
	PrecisionUSDC        string `json:"precisionUsdc"`
	PrecisionSOL         string `json:"precisionSol"`
	AmountInvalid        string `json:"amountInvalid"`
	WalletInvalid        string `json:"walletInvalid"`
	MinimumOrder         string `json:"minimumOrder"`
	InvalidStatus        string `json:"invalidStatus"`
	NotFound             string `json:"notFound"`
	NotificationWarning  string `json:"notificationWarning"`
	ProofInvalid         string `json:"proofInvalid"`
	RateLimited          string `json:"rateLimited"`
	RejectReasonRequired string `json:"rejectReasonRequired"`
}

type StatusCopy struct {
	Unpaid        string `json:"unpaid"`
	PendingReview string `json:"pendingReview"`
	Paid          string `json:"paid"`
	Cancelled     string `json:"cancelled"`
	Expired       string `json:"expired"`
	Pending       string `json:"pending"`
	Approved      string `json:"approved"`
	Rejected      string `json:"rejected"`
	Unknown       string `json:"unknown"`
}

type InvoiceCopy struct {
	Title               string `json:"title"`
	Number              string `json:"number"`
	Created             string `json:"created"`
	Expires             string `json:"expires"`
	Amount              string `json:"amount"`
	UploadProof         string `json:"uploadProof"`
	Approve             string `json:"approve"`
	Reject              string `json:"reject"`
	RejectReason        string `json:"rejectReason"`
	PaymentInstructions string `json:"paymentInstructions"`
}

type WithdrawalCopy struct {
	Title     string `json:"title"`
	Amount    string `json:"amount"`
	Wallet    string `json:"wallet"`
	Requested string `json:"requested"`
	Processed string `json:"processed"`
	TxHash    string `json:"txHash"`
	Approve   string `json:"approve"`
	Reject    string `json:"reject"`
	Audit     string `json:"audit"`
}

type AntiScamCopy struct {
	Title            string `json:"title"`
	Body             string `json:"body"`
	OfficialChannels string `json:"officialChannels"`
	NoDirectMessages string `json:"noDirectMessages"`
	Report           string `json:"report"`
}

type CoordinatorsCopy struct {
	Title    string `json:"title"`
	Intro    string `json:"intro"`
	Contact  string `json:"contact"`
	Region   string `json:"region"`
	Verified string `json:"verified"`
}

type DAOCopy struct {
	Title        string `json:"title"`
	Intro        string `json:"intro"`
	Proposals    string `json:"proposals"`
	VotingOpen   string `json:"votingOpen"`
	VotingClosed string `json:"votingClosed"`
	Quorum       string `json:"quorum"`
}

type FooterCopy struct {
	Rights     string `json:"rights"`
	Terms      string `json:"terms"`
	Privacy    string `json:"privacy"`
	Disclaimer string `json:"disclaimer"`
}

type MonthsCopy struct {
	Jan string `json:"jan"`
	Feb string `json:"feb"`
	Mar string `json:"mar"`
	Apr string `json:"apr"`
	May string `json:"may"`
	Jun string `json:"jun"`
	Jul string `json:"jul"`
	Aug string `json:"aug"`
	Sep string `json:"sep"`
	Oct string `json:"oct"`
	Nov string `json:"nov"`
	Dec string `json:"dec"`
}
