package email

const (
	subjectNewLeadFmt      = "New %s lead in %s, %s"
	subjectCallBilled      = "Receipt: lead call billed"
	subjectChargeFailedFmt = "Action required: payment of %s failed"
)
