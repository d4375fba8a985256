package ccu

import "fmt"

// TableStep is the width of one bucket of the PLL factor table.
const TableStep = 6000000

// stored is a factor set as it sits in the register: n, k and m are one less
// than the factor, p is log2 of the post divider.
type stored struct {
	n, k, m, p uint8
}

func (s stored) factors() Factors {
	return Factors{
		N: uint64(s.n) + 1,
		K: uint64(s.k) + 1,
		M: uint64(s.m) + 1,
		P: 1 << s.p,
	}
}

// nkmpFreqMap maps rate/TableStep to hardware validated factors for a 24MHz
// parent. The comments give the bucket start and the resulting rate.
var nkmpFreqMap = [...]stored{
	{9, 0, 0, 2},  // 0 => 60 MHz
	{9, 0, 0, 2},  // 6 => 60 MHz
	{9, 0, 0, 2},  // 12 => 60 MHz
	{9, 0, 0, 2},  // 18 => 60 MHz
	{9, 0, 0, 2},  // 24 => 60 MHz
	{9, 0, 0, 2},  // 30 => 60 MHz
	{9, 0, 0, 2},  // 36 => 60 MHz
	{9, 0, 0, 2},  // 42 => 60 MHz
	{9, 0, 0, 2},  // 48 => 60 MHz
	{9, 0, 0, 2},  // 54 => 60 MHz
	{9, 0, 0, 2},  // 60 => 60 MHz
	{10, 0, 0, 2}, // 66 => 66 MHz
	{11, 0, 0, 2}, // 72 => 72 MHz
	{12, 0, 0, 2}, // 78 => 78 MHz
	{13, 0, 0, 2}, // 84 => 84 MHz
	{14, 0, 0, 2}, // 90 => 90 MHz
	{15, 0, 0, 2}, // 96 => 96 MHz
	{16, 0, 0, 2}, // 102 => 102 MHz
	{17, 0, 0, 2}, // 108 => 108 MHz
	{18, 0, 0, 2}, // 114 => 114 MHz
	{9, 0, 0, 1},  // 120 => 120 MHz
	{10, 0, 0, 1}, // 126 => 132 MHz
	{10, 0, 0, 1}, // 132 => 132 MHz
	{11, 0, 0, 1}, // 138 => 144 MHz
	{11, 0, 0, 1}, // 144 => 144 MHz
	{12, 0, 0, 1}, // 150 => 156 MHz
	{12, 0, 0, 1}, // 156 => 156 MHz
	{13, 0, 0, 1}, // 162 => 168 MHz
	{13, 0, 0, 1}, // 168 => 168 MHz
	{14, 0, 0, 1}, // 174 => 180 MHz
	{14, 0, 0, 1}, // 180 => 180 MHz
	{15, 0, 0, 1}, // 186 => 192 MHz
	{15, 0, 0, 1}, // 192 => 192 MHz
	{16, 0, 0, 1}, // 198 => 204 MHz
	{16, 0, 0, 1}, // 204 => 204 MHz
	{17, 0, 0, 1}, // 210 => 216 MHz
	{17, 0, 0, 1}, // 216 => 216 MHz
	{18, 0, 0, 1}, // 222 => 228 MHz
	{18, 0, 0, 1}, // 228 => 228 MHz
	{9, 0, 0, 0},  // 234 => 240 MHz
	{9, 0, 0, 0},  // 240 => 240 MHz
	{10, 0, 0, 0}, // 246 => 264 MHz
	{10, 0, 0, 0}, // 252 => 264 MHz
	{10, 0, 0, 0}, // 258 => 264 MHz
	{10, 0, 0, 0}, // 264 => 264 MHz
	{11, 0, 0, 0}, // 270 => 288 MHz
	{11, 0, 0, 0}, // 276 => 288 MHz
	{11, 0, 0, 0}, // 282 => 288 MHz
	{11, 0, 0, 0}, // 288 => 288 MHz
	{12, 0, 0, 0}, // 294 => 312 MHz
	{12, 0, 0, 0}, // 300 => 312 MHz
	{12, 0, 0, 0}, // 306 => 312 MHz
	{12, 0, 0, 0}, // 312 => 312 MHz
	{13, 0, 0, 0}, // 318 => 336 MHz
	{13, 0, 0, 0}, // 324 => 336 MHz
	{13, 0, 0, 0}, // 330 => 336 MHz
	{13, 0, 0, 0}, // 336 => 336 MHz
	{14, 0, 0, 0}, // 342 => 360 MHz
	{14, 0, 0, 0}, // 348 => 360 MHz
	{14, 0, 0, 0}, // 354 => 360 MHz
	{14, 0, 0, 0}, // 360 => 360 MHz
	{15, 0, 0, 0}, // 366 => 384 MHz
	{15, 0, 0, 0}, // 372 => 384 MHz
	{15, 0, 0, 0}, // 378 => 384 MHz
	{15, 0, 0, 0}, // 384 => 384 MHz
	{16, 0, 0, 0}, // 390 => 408 MHz
	{16, 0, 0, 0}, // 396 => 408 MHz
	{16, 0, 0, 0}, // 402 => 408 MHz
	{16, 0, 0, 0}, // 408 => 408 MHz
	{17, 0, 0, 0}, // 414 => 432 MHz
	{17, 0, 0, 0}, // 420 => 432 MHz
	{17, 0, 0, 0}, // 426 => 432 MHz
	{17, 0, 0, 0}, // 432 => 432 MHz
	{18, 0, 0, 0}, // 438 => 456 MHz
	{18, 0, 0, 0}, // 444 => 456 MHz
	{18, 0, 0, 0}, // 450 => 456 MHz
	{18, 0, 0, 0}, // 456 => 456 MHz
	{19, 0, 0, 0}, // 462 => 480 MHz
	{19, 0, 0, 0}, // 468 => 480 MHz
	{19, 0, 0, 0}, // 474 => 480 MHz
	{19, 0, 0, 0}, // 480 => 480 MHz
	{20, 0, 0, 0}, // 486 => 504 MHz
	{20, 0, 0, 0}, // 492 => 504 MHz
	{20, 0, 0, 0}, // 498 => 504 MHz
	{20, 0, 0, 0}, // 504 => 504 MHz
	{21, 0, 0, 0}, // 510 => 528 MHz
	{21, 0, 0, 0}, // 516 => 528 MHz
	{21, 0, 0, 0}, // 522 => 528 MHz
	{21, 0, 0, 0}, // 528 => 528 MHz
	{22, 0, 0, 0}, // 534 => 552 MHz
	{22, 0, 0, 0}, // 540 => 552 MHz
	{22, 0, 0, 0}, // 546 => 552 MHz
	{22, 0, 0, 0}, // 552 => 552 MHz
	{23, 0, 0, 0}, // 558 => 576 MHz
	{23, 0, 0, 0}, // 564 => 576 MHz
	{23, 0, 0, 0}, // 570 => 576 MHz
	{23, 0, 0, 0}, // 576 => 576 MHz
	{24, 0, 0, 0}, // 582 => 600 MHz
	{24, 0, 0, 0}, // 588 => 600 MHz
	{24, 0, 0, 0}, // 594 => 600 MHz
	{24, 0, 0, 0}, // 600 => 600 MHz
	{25, 0, 0, 0}, // 606 => 624 MHz
	{25, 0, 0, 0}, // 612 => 624 MHz
	{25, 0, 0, 0}, // 618 => 624 MHz
	{25, 0, 0, 0}, // 624 => 624 MHz
	{26, 0, 0, 0}, // 630 => 648 MHz
	{26, 0, 0, 0}, // 636 => 648 MHz
	{26, 0, 0, 0}, // 642 => 648 MHz
	{26, 0, 0, 0}, // 648 => 648 MHz
	{27, 0, 0, 0}, // 654 => 672 MHz
	{27, 0, 0, 0}, // 660 => 672 MHz
	{27, 0, 0, 0}, // 666 => 672 MHz
	{27, 0, 0, 0}, // 672 => 672 MHz
	{28, 0, 0, 0}, // 678 => 696 MHz
	{28, 0, 0, 0}, // 684 => 696 MHz
	{28, 0, 0, 0}, // 690 => 696 MHz
	{28, 0, 0, 0}, // 696 => 696 MHz
	{29, 0, 0, 0}, // 702 => 720 MHz
	{29, 0, 0, 0}, // 708 => 720 MHz
	{29, 0, 0, 0}, // 714 => 720 MHz
	{29, 0, 0, 0}, // 720 => 720 MHz
	{15, 1, 0, 0}, // 726 => 768 MHz
	{15, 1, 0, 0}, // 732 => 768 MHz
	{15, 1, 0, 0}, // 738 => 768 MHz
	{15, 1, 0, 0}, // 744 => 768 MHz
	{15, 1, 0, 0}, // 750 => 768 MHz
	{15, 1, 0, 0}, // 756 => 768 MHz
	{15, 1, 0, 0}, // 762 => 768 MHz
	{15, 1, 0, 0}, // 768 => 768 MHz
	{10, 2, 0, 0}, // 774 => 792 MHz
	{10, 2, 0, 0}, // 780 => 792 MHz
	{10, 2, 0, 0}, // 786 => 792 MHz
	{10, 2, 0, 0}, // 792 => 792 MHz
	{16, 1, 0, 0}, // 798 => 816 MHz
	{16, 1, 0, 0}, // 804 => 816 MHz
	{16, 1, 0, 0}, // 810 => 816 MHz
	{16, 1, 0, 0}, // 816 => 816 MHz
	{17, 1, 0, 0}, // 822 => 864 MHz
	{17, 1, 0, 0}, // 828 => 864 MHz
	{17, 1, 0, 0}, // 834 => 864 MHz
	{17, 1, 0, 0}, // 840 => 864 MHz
	{17, 1, 0, 0}, // 846 => 864 MHz
	{17, 1, 0, 0}, // 852 => 864 MHz
	{17, 1, 0, 0}, // 858 => 864 MHz
	{17, 1, 0, 0}, // 864 => 864 MHz
	{18, 1, 0, 0}, // 870 => 912 MHz
	{18, 1, 0, 0}, // 876 => 912 MHz
	{18, 1, 0, 0}, // 882 => 912 MHz
	{18, 1, 0, 0}, // 888 => 912 MHz
	{18, 1, 0, 0}, // 894 => 912 MHz
	{18, 1, 0, 0}, // 900 => 912 MHz
	{18, 1, 0, 0}, // 906 => 912 MHz
	{18, 1, 0, 0}, // 912 => 912 MHz
	{12, 2, 0, 0}, // 918 => 936 MHz
	{12, 2, 0, 0}, // 924 => 936 MHz
	{12, 2, 0, 0}, // 930 => 936 MHz
	{12, 2, 0, 0}, // 936 => 936 MHz
	{19, 1, 0, 0}, // 942 => 960 MHz
	{19, 1, 0, 0}, // 948 => 960 MHz
	{19, 1, 0, 0}, // 954 => 960 MHz
	{19, 1, 0, 0}, // 960 => 960 MHz
	{20, 1, 0, 0}, // 966 => 1008 MHz
	{20, 1, 0, 0}, // 972 => 1008 MHz
	{20, 1, 0, 0}, // 978 => 1008 MHz
	{20, 1, 0, 0}, // 984 => 1008 MHz
	{20, 1, 0, 0}, // 990 => 1008 MHz
	{20, 1, 0, 0}, // 996 => 1008 MHz
	{20, 1, 0, 0}, // 1002 => 1008 MHz
	{20, 1, 0, 0}, // 1008 => 1008 MHz
	{21, 1, 0, 0}, // 1014 => 1056 MHz
	{21, 1, 0, 0}, // 1020 => 1056 MHz
	{21, 1, 0, 0}, // 1026 => 1056 MHz
	{21, 1, 0, 0}, // 1032 => 1056 MHz
	{21, 1, 0, 0}, // 1038 => 1056 MHz
	{21, 1, 0, 0}, // 1044 => 1056 MHz
	{21, 1, 0, 0}, // 1050 => 1056 MHz
	{21, 1, 0, 0}, // 1056 => 1056 MHz
	{14, 2, 0, 0}, // 1062 => 1080 MHz
	{14, 2, 0, 0}, // 1068 => 1080 MHz
	{14, 2, 0, 0}, // 1074 => 1080 MHz
	{14, 2, 0, 0}, // 1080 => 1080 MHz
	{22, 1, 0, 0}, // 1086 => 1104 MHz
	{22, 1, 0, 0}, // 1092 => 1104 MHz
	{22, 1, 0, 0}, // 1098 => 1104 MHz
	{22, 1, 0, 0}, // 1104 => 1104 MHz
	{23, 1, 0, 0}, // 1110 => 1152 MHz
	{23, 1, 0, 0}, // 1116 => 1152 MHz
	{23, 1, 0, 0}, // 1122 => 1152 MHz
	{23, 1, 0, 0}, // 1128 => 1152 MHz
	{23, 1, 0, 0}, // 1134 => 1152 MHz
	{23, 1, 0, 0}, // 1140 => 1152 MHz
	{23, 1, 0, 0}, // 1146 => 1152 MHz
	{23, 1, 0, 0}, // 1152 => 1152 MHz
	{24, 1, 0, 0}, // 1158 => 1200 MHz
	{24, 1, 0, 0}, // 1164 => 1200 MHz
	{24, 1, 0, 0}, // 1170 => 1200 MHz
	{24, 1, 0, 0}, // 1176 => 1200 MHz
	{24, 1, 0, 0}, // 1182 => 1200 MHz
	{24, 1, 0, 0}, // 1188 => 1200 MHz
	{24, 1, 0, 0}, // 1194 => 1200 MHz
	{24, 1, 0, 0}, // 1200 => 1200 MHz
	{16, 2, 0, 0}, // 1206 => 1224 MHz
	{16, 2, 0, 0}, // 1212 => 1224 MHz
	{16, 2, 0, 0}, // 1218 => 1224 MHz
	{16, 2, 0, 0}, // 1224 => 1224 MHz
	{25, 1, 0, 0}, // 1230 => 1248 MHz
	{25, 1, 0, 0}, // 1236 => 1248 MHz
	{25, 1, 0, 0}, // 1242 => 1248 MHz
	{25, 1, 0, 0}, // 1248 => 1248 MHz
	{26, 1, 0, 0}, // 1254 => 1296 MHz
	{26, 1, 0, 0}, // 1260 => 1296 MHz
	{26, 1, 0, 0}, // 1266 => 1296 MHz
	{26, 1, 0, 0}, // 1272 => 1296 MHz
	{26, 1, 0, 0}, // 1278 => 1296 MHz
	{26, 1, 0, 0}, // 1284 => 1296 MHz
	{26, 1, 0, 0}, // 1290 => 1296 MHz
	{26, 1, 0, 0}, // 1296 => 1296 MHz
	{27, 1, 0, 0}, // 1302 => 1344 MHz
	{27, 1, 0, 0}, // 1308 => 1344 MHz
	{27, 1, 0, 0}, // 1314 => 1344 MHz
	{27, 1, 0, 0}, // 1320 => 1344 MHz
	{27, 1, 0, 0}, // 1326 => 1344 MHz
	{27, 1, 0, 0}, // 1332 => 1344 MHz
	{27, 1, 0, 0}, // 1338 => 1344 MHz
	{27, 1, 0, 0}, // 1344 => 1344 MHz
	{18, 2, 0, 0}, // 1350 => 1368 MHz
	{18, 2, 0, 0}, // 1356 => 1368 MHz
	{18, 2, 0, 0}, // 1362 => 1368 MHz
	{18, 2, 0, 0}, // 1368 => 1368 MHz
	{19, 2, 0, 0}, // 1374 => 1440 MHz
	{19, 2, 0, 0}, // 1380 => 1440 MHz
	{19, 2, 0, 0}, // 1386 => 1440 MHz
	{19, 2, 0, 0}, // 1392 => 1440 MHz
	{19, 2, 0, 0}, // 1398 => 1440 MHz
	{19, 2, 0, 0}, // 1404 => 1440 MHz
	{19, 2, 0, 0}, // 1410 => 1440 MHz
	{19, 2, 0, 0}, // 1416 => 1440 MHz
	{19, 2, 0, 0}, // 1422 => 1440 MHz
	{19, 2, 0, 0}, // 1428 => 1440 MHz
	{19, 2, 0, 0}, // 1434 => 1440 MHz
	{19, 2, 0, 0}, // 1440 => 1440 MHz
	{20, 2, 0, 0}, // 1446 => 1512 MHz
	{20, 2, 0, 0}, // 1452 => 1512 MHz
	{20, 2, 0, 0}, // 1458 => 1512 MHz
	{20, 2, 0, 0}, // 1464 => 1512 MHz
	{20, 2, 0, 0}, // 1470 => 1512 MHz
	{20, 2, 0, 0}, // 1476 => 1512 MHz
	{20, 2, 0, 0}, // 1482 => 1512 MHz
	{20, 2, 0, 0}, // 1488 => 1512 MHz
	{20, 2, 0, 0}, // 1494 => 1512 MHz
	{20, 2, 0, 0}, // 1500 => 1512 MHz
	{20, 2, 0, 0}, // 1506 => 1512 MHz
	{20, 2, 0, 0}, // 1512 => 1512 MHz
	{15, 3, 0, 0}, // 1518 => 1536 MHz
	{15, 3, 0, 0}, // 1524 => 1536 MHz
	{15, 3, 0, 0}, // 1530 => 1536 MHz
	{15, 3, 0, 0}, // 1536 => 1536 MHz
	{21, 2, 0, 0}, // 1542 => 1584 MHz
	{21, 2, 0, 0}, // 1548 => 1584 MHz
	{21, 2, 0, 0}, // 1554 => 1584 MHz
	{21, 2, 0, 0}, // 1560 => 1584 MHz
	{21, 2, 0, 0}, // 1566 => 1584 MHz
	{21, 2, 0, 0}, // 1572 => 1584 MHz
	{21, 2, 0, 0}, // 1578 => 1584 MHz
	{21, 2, 0, 0}, // 1584 => 1584 MHz
	{16, 3, 0, 0}, // 1590 => 1632 MHz
	{16, 3, 0, 0}, // 1596 => 1632 MHz
	{16, 3, 0, 0}, // 1602 => 1632 MHz
	{16, 3, 0, 0}, // 1608 => 1632 MHz
	{16, 3, 0, 0}, // 1614 => 1632 MHz
	{16, 3, 0, 0}, // 1620 => 1632 MHz
	{16, 3, 0, 0}, // 1626 => 1632 MHz
	{16, 3, 0, 0}, // 1632 => 1632 MHz
	{22, 2, 0, 0}, // 1638 => 1656 MHz
	{22, 2, 0, 0}, // 1644 => 1656 MHz
	{22, 2, 0, 0}, // 1650 => 1656 MHz
	{22, 2, 0, 0}, // 1656 => 1656 MHz
	{23, 2, 0, 0}, // 1662 => 1728 MHz
	{23, 2, 0, 0}, // 1668 => 1728 MHz
	{23, 2, 0, 0}, // 1674 => 1728 MHz
	{23, 2, 0, 0}, // 1680 => 1728 MHz
	{23, 2, 0, 0}, // 1686 => 1728 MHz
	{23, 2, 0, 0}, // 1692 => 1728 MHz
	{23, 2, 0, 0}, // 1698 => 1728 MHz
	{23, 2, 0, 0}, // 1704 => 1728 MHz
	{23, 2, 0, 0}, // 1710 => 1728 MHz
	{23, 2, 0, 0}, // 1716 => 1728 MHz
	{23, 2, 0, 0}, // 1722 => 1728 MHz
	{23, 2, 0, 0}, // 1728 => 1728 MHz
	{24, 2, 0, 0}, // 1734 => 1800 MHz
	{24, 2, 0, 0}, // 1740 => 1800 MHz
	{24, 2, 0, 0}, // 1746 => 1800 MHz
	{24, 2, 0, 0}, // 1752 => 1800 MHz
	{24, 2, 0, 0}, // 1758 => 1800 MHz
	{24, 2, 0, 0}, // 1764 => 1800 MHz
	{24, 2, 0, 0}, // 1770 => 1800 MHz
	{24, 2, 0, 0}, // 1776 => 1800 MHz
	{24, 2, 0, 0}, // 1782 => 1800 MHz
	{24, 2, 0, 0}, // 1788 => 1800 MHz
	{24, 2, 0, 0}, // 1794 => 1800 MHz
	{24, 2, 0, 0}, // 1800 => 1800 MHz
	{25, 2, 0, 0}, // 1806 => 1872 MHz
	{25, 2, 0, 0}, // 1812 => 1872 MHz
	{25, 2, 0, 0}, // 1818 => 1872 MHz
	{25, 2, 0, 0}, // 1824 => 1872 MHz
	{25, 2, 0, 0}, // 1830 => 1872 MHz
	{25, 2, 0, 0}, // 1836 => 1872 MHz
	{25, 2, 0, 0}, // 1842 => 1872 MHz
	{25, 2, 0, 0}, // 1848 => 1872 MHz
	{25, 2, 0, 0}, // 1854 => 1872 MHz
	{25, 2, 0, 0}, // 1860 => 1872 MHz
	{25, 2, 0, 0}, // 1866 => 1872 MHz
	{25, 2, 0, 0}, // 1872 => 1872 MHz
	{26, 2, 0, 0}, // 1878 => 1944 MHz
	{26, 2, 0, 0}, // 1884 => 1944 MHz
	{26, 2, 0, 0}, // 1890 => 1944 MHz
	{26, 2, 0, 0}, // 1896 => 1944 MHz
	{26, 2, 0, 0}, // 1902 => 1944 MHz
	{26, 2, 0, 0}, // 1908 => 1944 MHz
	{26, 2, 0, 0}, // 1914 => 1944 MHz
	{26, 2, 0, 0}, // 1920 => 1944 MHz
	{26, 2, 0, 0}, // 1926 => 1944 MHz
	{26, 2, 0, 0}, // 1932 => 1944 MHz
	{26, 2, 0, 0}, // 1938 => 1944 MHz
	{26, 2, 0, 0}, // 1944 => 1944 MHz
	{27, 2, 0, 0}, // 1950 => 2016 MHz
	{27, 2, 0, 0}, // 1956 => 2016 MHz
	{27, 2, 0, 0}, // 1962 => 2016 MHz
	{27, 2, 0, 0}, // 1968 => 2016 MHz
	{27, 2, 0, 0}, // 1974 => 2016 MHz
	{27, 2, 0, 0}, // 1980 => 2016 MHz
	{27, 2, 0, 0}, // 1986 => 2016 MHz
	{27, 2, 0, 0}, // 1992 => 2016 MHz
	{27, 2, 0, 0}, // 1998 => 2016 MHz
	{27, 2, 0, 0}, // 2004 => 2016 MHz
	{27, 2, 0, 0}, // 2010 => 2016 MHz
	{27, 2, 0, 0}, // 2016 => 2016 MHz
}

// TableResolver looks factors up in the vendor bucket table. The table was
// built for a 24MHz parent, so the parent rate is ignored.
type TableResolver struct{}

// Resolve returns the factors of the bucket target falls in. Targets past the
// end of the table get the last entry. When the tabulated factors don't fit
// lim, the closest lower bucket that fits wins, then the closest higher one.
func (TableResolver) Resolve(parent, target uint64, lim Limits) (Factors, error) {
	if err := checkArgs(parent, target, lim); err != nil {
		return Factors{}, err
	}
	idx := Bucket(target)
	if f := nkmpFreqMap[idx].factors(); f.Within(lim) {
		return f, nil
	}
	for i := idx - 1; i >= 0; i-- {
		if f := nkmpFreqMap[i].factors(); f.Within(lim) {
			return f, nil
		}
	}
	for i := idx + 1; i < len(nkmpFreqMap); i++ {
		if f := nkmpFreqMap[i].factors(); f.Within(lim) {
			return f, nil
		}
	}
	return Factors{}, fmt.Errorf("no table entry fits %+v: %w", lim, ErrNoFactorFound)
}

// Bucket returns the table index used for target.
func Bucket(target uint64) int {
	idx := target / TableStep
	if idx >= uint64(len(nkmpFreqMap)) {
		return len(nkmpFreqMap) - 1
	}
	return int(idx)
}

// TableLen is the number of buckets in the factor table.
func TableLen() int {
	return len(nkmpFreqMap)
}
