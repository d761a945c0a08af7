package adc

// ADC register offsets.
const (
	adcISR   = 0x00
	adcIER   = 0x04
	adcCR    = 0x08
	adcCFGR  = 0x0C
	adcSMPR1 = 0x14
	adcSMPR2 = 0x18
	adcPCSEL = 0x1C
	adcSQR1  = 0x30
	adcDR    = 0x40

	// Offset of CCR in the common register block.
	adcCommonCCR = 0x08
)

const (
	ADC_ISR_ADRDY  = 0x1 << 0
	ADC_ISR_EOSMP  = 0x1 << 1
	ADC_ISR_EOC    = 0x1 << 2
	ADC_ISR_EOS    = 0x1 << 3
	ADC_ISR_OVR    = 0x1 << 4
	ADC_ISR_LDORDY = 0x1 << 12

	ADC_CR_ADEN     = 0x1 << 0
	ADC_CR_ADDIS    = 0x1 << 1
	ADC_CR_ADSTART  = 0x1 << 2
	ADC_CR_ADSTP    = 0x1 << 4
	ADC_CR_ADCALLIN = 0x1 << 16
	ADC_CR_ADVREGEN = 0x1 << 28
	ADC_CR_DEEPPWD  = 0x1 << 29
	ADC_CR_ADCALDIF = 0x1 << 30
	ADC_CR_ADCAL    = 0x1 << 31

	ADC_CFGR_CONT = 0x1 << 13

	ADC_SQR1_L_Msk   = 0xF
	ADC_SQR1_SQ1_Pos = 6
	ADC_SQR1_SQ1_Msk = 0x1F

	ADC_CCR_PRESC_Pos  = 18
	ADC_CCR_PRESC_Msk  = 0xF
	ADC_CCR_PRESC_DIV2 = 0x1
)

// sampleTime selects 8.5 ADC clock cycles for all ten channels of an SMPR
// register.
const sampleTime = 0b010 * 0x09249249
